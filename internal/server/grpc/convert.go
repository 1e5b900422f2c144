package grpc

import (
	"github.com/dmitrijs2005/promptkeeper/internal/rpc"
	"github.com/dmitrijs2005/promptkeeper/internal/server/models"
	"github.com/dmitrijs2005/promptkeeper/internal/server/services"
)

func toWire(p *models.Prompt) rpc.Prompt {
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

func toWireList(items []*models.Prompt) []rpc.Prompt {
	out := make([]rpc.Prompt, 0, len(items))
	for _, p := range items {
		out = append(out, toWire(p))
	}
	return out
}

func fromWire(p rpc.Prompt) *models.Prompt {
	return &models.Prompt{
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

func opsFromWire(in []rpc.BatchOp) []services.BatchOp {
	out := make([]services.BatchOp, 0, len(in))
	for _, op := range in {
		o := services.BatchOp{Kind: op.Kind, ID: op.ID, Locked: op.Locked, UpdatedAt: op.UpdatedAt}
		if op.Prompt != nil {
			o.Prompt = fromWire(*op.Prompt)
		}
		out = append(out, o)
	}
	return out
}

func changeToWire(c models.Change) *rpc.Change {
	out := &rpc.Change{Kind: c.Kind, ID: c.ID}
	if c.Prompt != nil {
		p := toWire(c.Prompt)
		out.Prompt = &p
	}
	return out
}
