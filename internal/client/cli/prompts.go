package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/common"
	"github.com/dmitrijs2005/promptkeeper/internal/timex"
)

const exportDir = "exports"

// fail reports err to the user and the log and returns it unchanged.
func (a *App) fail(ctx context.Context, op string, err error) error {
	a.logger.Error(ctx, op+" failed", "error", err)
	switch {
	case errors.Is(err, common.ErrRecordLocked):
		a.println("Error: this prompt is locked, upgrade to pro to edit it")
	case errors.Is(err, common.ErrOffline):
		a.println("Error: not connected, changes are kept locally")
	default:
		a.println("Error:", err.Error())
	}
	return err
}

func (a *App) askID(prompt string) (string, error) {
	id, err := getSimpleText(a.reader, prompt, a.output())
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("%w: empty id", common.ErrorInvalidInput)
	}
	return id, nil
}

// List prints the active prompts, most recently updated first.
func (a *App) List(ctx context.Context) error {
	items, err := a.promptService.List(ctx)
	if err != nil {
		return a.fail(ctx, "list", err)
	}
	if len(items) == 0 {
		a.println("No prompts yet")
		return nil
	}

	tw := tabwriter.NewWriter(a.output(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTAGS\tUSED\t")
	for _, p := range items {
		title := p.Title
		if p.Locked {
			title += " [locked]"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t\n", p.ID, title, strings.Join(p.Tags, ","), p.UseCount)
	}
	return tw.Flush()
}

// Show prints one prompt in full.
func (a *App) Show(ctx context.Context) error {
	id, err := a.askID("Enter prompt id to show")
	if err != nil {
		return a.fail(ctx, "show", err)
	}
	p, err := a.promptService.Get(ctx, id)
	if err != nil {
		return a.fail(ctx, "show", err)
	}
	a.printPrompt(p)
	return nil
}

func (a *App) printPrompt(p *models.Prompt) {
	a.println("Title:", p.Title)
	if p.SourceURL != "" {
		a.println("Source:", p.SourceURL)
	}
	if len(p.Tags) > 0 {
		a.println("Tags:", strings.Join(p.Tags, ", "))
	}
	a.println("Used:", p.UseCount)
	if p.LastUsed > 0 {
		a.println("Last used:", timex.FromMillis(p.LastUsed).Format(time.DateTime))
	}
	switch {
	case !p.IsActive:
		a.println("State: deleted")
	case p.Locked:
		a.println("State: locked")
	}
	a.println()
	a.println(p.Content)
}

// Add collects a new prompt and stores it.
func (a *App) Add(ctx context.Context) error {
	title, err := getSimpleText(a.reader, "Enter title", a.output())
	if err != nil {
		return a.fail(ctx, "add", err)
	}
	content, err := GetMultiline(a.reader, "Enter prompt text", a.output())
	if err != nil {
		return a.fail(ctx, "add", err)
	}
	source, err := getSimpleText(a.reader, "Enter source URL (optional)", a.output())
	if err != nil {
		return a.fail(ctx, "add", err)
	}
	tags, err := getSimpleText(a.reader, "Enter tags, comma separated (optional)", a.output())
	if err != nil {
		return a.fail(ctx, "add", err)
	}

	p, err := a.promptService.Add(ctx, models.Prompt{
		Title:     title,
		Content:   content,
		SourceURL: source,
		Tags:      ParseTags(tags),
	})
	if err != nil {
		return a.fail(ctx, "add", err)
	}
	a.println("Saved", p.ID)
	return nil
}

// Edit updates title, text and tags of a prompt. Empty answers keep the
// current value; a single "-" clears the tags.
func (a *App) Edit(ctx context.Context) error {
	id, err := a.askID("Enter prompt id to edit")
	if err != nil {
		return a.fail(ctx, "edit", err)
	}

	var patch models.PromptPatch

	title, err := getSimpleText(a.reader, "Enter new title (empty keeps current)", a.output())
	if err != nil {
		return a.fail(ctx, "edit", err)
	}
	if title != "" {
		patch.Title = &title
	}

	content, err := GetMultiline(a.reader, "Enter new prompt text (empty keeps current)", a.output())
	if err != nil {
		return a.fail(ctx, "edit", err)
	}
	if content != "" {
		patch.Content = &content
	}

	tags, err := getSimpleText(a.reader, "Enter new tags (empty keeps current, - clears)", a.output())
	if err != nil {
		return a.fail(ctx, "edit", err)
	}
	switch tags {
	case "":
	case "-":
		patch.SetTags = true
	default:
		patch.SetTags = true
		patch.Tags = ParseTags(tags)
	}

	if _, err := a.promptService.Edit(ctx, id, patch); err != nil {
		return a.fail(ctx, "edit", err)
	}
	a.println("Updated", id)
	return nil
}

// Use prints the prompt text and counts the use.
func (a *App) Use(ctx context.Context) error {
	id, err := a.askID("Enter prompt id to use")
	if err != nil {
		return a.fail(ctx, "use", err)
	}
	p, err := a.promptService.Use(ctx, id)
	if err != nil {
		return a.fail(ctx, "use", err)
	}
	a.println(p.Content)
	return nil
}

func (a *App) Delete(ctx context.Context) error {
	id, err := a.askID("Enter prompt id to delete")
	if err != nil {
		return a.fail(ctx, "delete", err)
	}
	if err := a.promptService.Delete(ctx, id); err != nil {
		return a.fail(ctx, "delete", err)
	}
	a.println("Deleted", id)
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	stats, err := a.promptService.Sync(ctx)
	if err != nil {
		return a.fail(ctx, "sync", err)
	}
	a.printStats(stats)
	return nil
}

func (a *App) FullSync(ctx context.Context) error {
	stats, err := a.promptService.FullSync(ctx)
	if err != nil {
		return a.fail(ctx, "full sync", err)
	}
	a.printStats(stats)
	return nil
}

func (a *App) printStats(s models.SyncStats) {
	a.println(fmt.Sprintf("Uploaded %d, downloaded %d, conflicts %d (resolved %d)",
		s.Uploaded, s.Downloaded, s.Conflicts, s.Resolved))
}

func (a *App) Status(ctx context.Context) error {
	status, pending := a.promptService.Status()
	a.println("Connection:", a.mode())
	a.println("Sync:", statusLine(status, pending))
	if !status.Timestamp.IsZero() {
		a.println("Since:", status.Timestamp.Format(time.DateTime))
	}
	return nil
}

// Tier shows the membership tier and optionally switches it.
func (a *App) Tier(ctx context.Context) error {
	tier, err := a.promptService.Tier(ctx)
	if err != nil {
		return a.fail(ctx, "tier", err)
	}
	a.println("Current tier:", tier)

	answer, err := getSimpleText(a.reader, "Enter new tier (free/pro, empty keeps current)", a.output())
	if err != nil {
		return a.fail(ctx, "tier", err)
	}
	if answer == "" {
		return nil
	}
	next := models.Tier(strings.ToLower(answer))
	if next != models.TierFree && next != models.TierPro {
		return a.fail(ctx, "tier", fmt.Errorf("%w: unknown tier %q", common.ErrorInvalidInput, answer))
	}
	if next == tier {
		return nil
	}

	tier, err = a.promptService.SetTier(ctx, next)
	if err != nil {
		return a.fail(ctx, "tier", err)
	}
	a.println("Tier changed to", tier)
	return nil
}

// Export downloads a server-side archive of all prompts into ./exports.
func (a *App) Export(ctx context.Context) error {
	path, count, err := a.promptService.Export(ctx, exportDir)
	if err != nil {
		return a.fail(ctx, "export", err)
	}
	a.println(fmt.Sprintf("Exported %d prompts to %s", count, path))
	return nil
}
