// Package reconcile brings an ordered child collection of a catalog entity
// from its persisted state to a caller-specified target state, issuing the
// minimal set of asset-store and relational-store operations.
package reconcile

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Yoonyonggeun/mostarle-kr/internal/apperr"
)

// Child is one persisted collection member.
type Child struct {
	ID    int64
	URL   string // asset URL; empty for a detail without an image
	Order int
}

// NewPayload is one new member to upload and insert. Title/Description and
// ReplaceID apply to detail collections only; an image payload always
// carries Data.
type NewPayload struct {
	Name        string // original filename
	ContentType string
	Data        []byte

	Title       string
	Description string
	// ReplaceID names an existing child whose asset-store object this
	// payload supersedes. Its old object is removed before the upload.
	ReplaceID int64
}

// Collection is the relational side of one child collection (images or
// details of one parent kind).
type Collection interface {
	// List returns the current children sorted by order.
	List(ctx context.Context, parentID int64) ([]Child, error)
	// Reorder sets a child's order field in place; no row is re-inserted.
	Reorder(ctx context.Context, childID int64, order int) error
	Insert(ctx context.Context, parentID int64, p NewPayload, url string, order int) (int64, error)
	Delete(ctx context.Context, ids ...int64) error
	DeleteAll(ctx context.Context, parentID int64) error
	// ObjectKey derives the asset-store path for a new payload landing at
	// the given positional index.
	ObjectKey(parentID int64, position int, filename string, now time.Time) string
}

// AssetStore is the binary side.
type AssetStore interface {
	Upload(ctx context.Context, key string, contentType string, payload []byte) error
	PublicURL(key string) string
	KeyFromURL(url string) (string, bool)
	Remove(ctx context.Context, keys ...string) error
}

// Janitor receives keys whose best-effort deletion failed so they can be
// retried out of band. A failed delete must never block a mutation.
type Janitor interface {
	EnqueueKeys(ctx context.Context, keys ...string) error
}

type Engine struct {
	assets  AssetStore
	janitor Janitor // optional
	log     *zap.SugaredLogger
	now     func() time.Time
}

func New(assets AssetStore, janitor Janitor, log *zap.SugaredLogger) *Engine {
	return &Engine{
		assets:  assets,
		janitor: janitor,
		log:     log,
		now:     time.Now,
	}
}

// Sync reconciles the collection under parentID to: the children named by
// keptIDs, in that order, followed by the new payloads, in their order.
//
// Deletes and reorders commit independently and are not rolled back once the
// relational store confirms them; only the uploads of this invocation are
// compensated on failure, so a retried request with the same kept-id set is
// a no-op for the already-advanced part.
func (e *Engine) Sync(ctx context.Context, coll Collection, parentID int64, keptIDs []int64, payloads []NewPayload) error {
	current, err := coll.List(ctx, parentID)
	if err != nil {
		return storeErr("load children", err)
	}

	byID := make(map[int64]Child, len(current))
	for _, c := range current {
		byID[c.ID] = c
	}

	kept := make(map[int64]int, len(keptIDs))
	for pos, id := range keptIDs {
		if _, ok := byID[id]; !ok {
			return apperr.Invalid("existing_ids", fmt.Sprintf("child %d not found under parent %d", id, parentID))
		}
		if _, dup := kept[id]; dup {
			return apperr.Invalid("existing_ids", fmt.Sprintf("child %d listed twice", id))
		}
		kept[id] = pos
	}

	var toDelete []Child
	for _, c := range current {
		if _, ok := kept[c.ID]; !ok {
			toDelete = append(toDelete, c)
		}
	}

	if err := e.deletePhase(ctx, coll, parentID, toDelete, len(keptIDs), len(payloads)); err != nil {
		return err
	}

	for pos, id := range keptIDs {
		if byID[id].Order == pos {
			continue
		}
		if err := coll.Reorder(ctx, id, pos); err != nil {
			return storeErr(fmt.Sprintf("reorder child %d", id), err)
		}
	}

	return e.insertPhase(ctx, coll, parentID, byID, len(keptIDs), payloads)
}

func (e *Engine) deletePhase(ctx context.Context, coll Collection, parentID int64, toDelete []Child, keptCount, newCount int) error {
	if len(toDelete) == 0 {
		return nil
	}

	e.removeAssets(ctx, toDelete)

	// Full replacement: nothing kept, new ones incoming. One call clears
	// the collection instead of enumerating ids.
	if keptCount == 0 && newCount > 0 {
		if err := coll.DeleteAll(ctx, parentID); err != nil {
			return storeErr("delete all children", err)
		}
		return nil
	}

	ids := make([]int64, len(toDelete))
	for i, c := range toDelete {
		ids[i] = c.ID
	}
	if err := coll.Delete(ctx, ids...); err != nil {
		return storeErr("delete children", err)
	}
	return nil
}

func (e *Engine) insertPhase(ctx context.Context, coll Collection, parentID int64, byID map[int64]Child, keptCount int, payloads []NewPayload) error {
	var uploaded []string

	for i, p := range payloads {
		order := keptCount + i

		if p.ReplaceID != 0 {
			e.removeReplaced(ctx, byID[p.ReplaceID])
		}

		url := ""
		if len(p.Data) > 0 {
			key := coll.ObjectKey(parentID, order, SanitizeName(p.Name), e.now())
			if err := e.assets.Upload(ctx, key, p.ContentType, p.Data); err != nil {
				e.compensate(ctx, uploaded)
				return storeErr("upload "+key, err)
			}
			uploaded = append(uploaded, key)
			url = e.assets.PublicURL(key)
		}

		if _, err := coll.Insert(ctx, parentID, p, url, order); err != nil {
			e.compensate(ctx, uploaded)
			return storeErr(fmt.Sprintf("insert child at %d", order), err)
		}
	}
	return nil
}

// removeAssets deletes the asset-store objects of outgoing children.
// Best-effort: a missing blob must never block the mutation.
func (e *Engine) removeAssets(ctx context.Context, children []Child) {
	var keys []string
	for _, c := range children {
		if key, ok := e.assets.KeyFromURL(c.URL); ok {
			keys = append(keys, key)
		}
	}
	e.removeKeys(ctx, keys)
}

func (e *Engine) removeReplaced(ctx context.Context, c Child) {
	if key, ok := e.assets.KeyFromURL(c.URL); ok {
		e.removeKeys(ctx, []string{key})
	}
}

// compensate removes the objects uploaded during this invocation after a
// later step failed. Already-committed deletes and reorders stay.
func (e *Engine) compensate(ctx context.Context, uploaded []string) {
	if len(uploaded) == 0 {
		return
	}
	e.log.Warnw("compensating partial reconciliation", "uploads", len(uploaded))
	e.removeKeys(ctx, uploaded)
}

func (e *Engine) removeKeys(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if err := e.assets.Remove(ctx, keys...); err != nil {
		e.log.Warnw("asset delete failed, handing to janitor", "keys", keys, "err", err)
		if e.janitor != nil {
			if jerr := e.janitor.EnqueueKeys(ctx, keys...); jerr != nil {
				e.log.Errorw("janitor enqueue failed", "keys", keys, "err", jerr)
			}
		}
	}
}

func storeErr(op string, err error) error {
	if apperr.KindOf(err) != apperr.KindUnknown {
		return err
	}
	return apperr.Store(op, err)
}

// SanitizeName keeps object keys URL-safe while preserving the original
// filename's readable part.
func SanitizeName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "file"
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
