package mongo

import (
	"errors"
	"testing"

	"github.com/rbaliyan/webmail/store"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestBuildFilter(t *testing.T) {
	t.Run("folder filters", func(t *testing.T) {
		got, err := buildFilter([]store.Filter{store.OwnerIs("a"), store.RecipientIs("a"), store.IsArchivedFilter(false)})
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		clauses, ok := got["$and"].([]bson.M)
		if !ok || len(clauses) != 3 {
			t.Fatalf("unexpected filter %v", got)
		}
		if clauses[0]["owner_id"] != "a" || clauses[1]["recipient_ids"] != "a" || clauses[2]["is_archived"] != false {
			t.Errorf("unexpected clauses %v", clauses)
		}
	})

	t.Run("no filters match everything", func(t *testing.T) {
		got, err := buildFilter(nil)
		if err != nil || len(got) != 0 {
			t.Errorf("expected empty filter, got %v %v", got, err)
		}
	})

	t.Run("invalid filter", func(t *testing.T) {
		if _, err := buildFilter([]store.Filter{store.OwnerIs("a"), {}}); !errors.Is(err, store.ErrFilterInvalid) {
			t.Errorf("expected ErrFilterInvalid, got %v", err)
		}
	})
}
