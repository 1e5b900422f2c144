package client

import (
	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/rpc"
)

func toWire(p models.Prompt) rpc.Prompt {
	return rpc.Prompt{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		UseCount:  p.UseCount,
		LastUsed:  p.LastUsed,
		IsActive:  p.IsActive,
		Locked:    p.Locked,
		SourceURL: p.SourceURL,
		Tags:      p.Tags,
	}
}

func fromWire(p rpc.Prompt) models.Prompt {
	return models.Prompt{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		UseCount:  p.UseCount,
		LastUsed:  p.LastUsed,
		IsActive:  p.IsActive,
		Locked:    p.Locked,
		SourceURL: p.SourceURL,
		Tags:      models.NormalizeTags(p.Tags),
	}
}

func fromWireList(in []rpc.Prompt) []models.Prompt {
	out := make([]models.Prompt, 0, len(in))
	for _, p := range in {
		out = append(out, fromWire(p))
	}
	return out
}

func batchToWire(ops []models.BatchOp) []rpc.BatchOp {
	out := make([]rpc.BatchOp, 0, len(ops))
	for _, op := range ops {
		w := rpc.BatchOp{Kind: string(op.Kind), ID: op.ID, Locked: op.Locked, UpdatedAt: op.UpdatedAt}
		if op.Prompt != nil {
			p := toWire(*op.Prompt)
			w.Prompt = &p
		}
		out = append(out, w)
	}
	return out
}

func changeFromWire(c *rpc.Change) models.Change {
	out := models.Change{Kind: models.ChangeKind(c.Kind), ID: c.ID}
	if c.Prompt != nil {
		p := fromWire(*c.Prompt)
		out.Prompt = &p
	}
	return out
}
