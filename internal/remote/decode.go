package remote

import (
	"encoding/json"
	"fmt"

	"github.com/mmynk/justsplit/internal/models"
	"github.com/mmynk/justsplit/internal/storage"
)

// decodeDocs maps documents onto a model type. Decoding goes through JSON so
// the models' field tags are the one description of the document schema.
// Documents that do not fit are skipped and passed to report.
func decodeDocs[T any](docs []storage.Document, report func(error), setID func(*T, string)) []T {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		raw, err := json.Marshal(storage.Normalize(doc.Data))
		if err == nil {
			err = json.Unmarshal(raw, &v)
		}
		if err != nil {
			report(fmt.Errorf("failed to decode document %s: %w", doc.ID, err))
			continue
		}
		setID(&v, doc.ID)
		out = append(out, v)
	}
	return out
}

func decodeUsers(docs []storage.Document, report func(error)) []models.User {
	return decodeDocs(docs, report, func(u *models.User, id string) { u.ID = id })
}

func decodeExpenses(docs []storage.Document, report func(error)) []models.Expense {
	return decodeDocs(docs, report, func(e *models.Expense, id string) { e.ID = id })
}

func decodeEvents(docs []storage.Document, report func(error)) []models.Event {
	return decodeDocs(docs, report, func(e *models.Event, id string) { e.ID = id })
}

func decodeSettlements(docs []storage.Document, report func(error)) []models.Settlement {
	return decodeDocs(docs, report, func(s *models.Settlement, id string) { s.ID = id })
}

func decodeGroups(docs []storage.Document, report func(error)) []models.Group {
	return decodeDocs(docs, report, func(g *models.Group, id string) { g.ID = id })
}
