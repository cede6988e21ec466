package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/marmos91/photobridge/internal/logger"
)

// Journal persists pipeline snapshots across restarts.
//
// Without a journal the pipeline keeps all pending work in memory only, and
// an unclean shutdown loses it.
type Journal interface {
	// Save replaces the stored snapshot.
	Save(ctx context.Context, snap *Snapshot) error

	// Load returns the stored snapshot, or nil if none exists.
	Load(ctx context.Context) (*Snapshot, error)
}

// Snapshot is the persisted form of the pipeline's pending work.
//
// Items being fetched or uploaded at the time of the snapshot are not part
// of it.
type Snapshot struct {
	Downloads []ContentReference  `json:"downloads"`
	Uploads   []SnapshotItem      `json:"uploads"`
	Tokens    map[string][]string `json:"tokens"`
	History   []SnapshotEntry     `json:"history"`
	SavedAt   time.Time           `json:"saved_at"`
}

// SnapshotItem is the persisted form of an UploadItem. File-backed items keep
// their path; in-memory items keep their bytes.
type SnapshotItem struct {
	Name        string    `json:"name"`
	Kind        MediaKind `json:"kind"`
	SourceID    string    `json:"source_id,omitempty"`
	Destination string    `json:"destination"`
	RetryCount  int       `json:"retry_count"`
	Token       string    `json:"token,omitempty"`
	Path        string    `json:"path,omitempty"`
	Data        []byte    `json:"data,omitempty"`
}

// SnapshotEntry is the persisted form of a HistoryEntry.
type SnapshotEntry struct {
	Token      string       `json:"token"`
	Item       SnapshotItem `json:"item"`
	RecordedAt time.Time    `json:"recorded_at"`
}

// Snapshot captures the queues, token buffers and history ring.
func (p *Pipeline) Snapshot() (*Snapshot, error) {
	snap := &Snapshot{
		Tokens:  p.tokens.Snapshot(),
		SavedAt: p.now(),
	}
	p.downloads.Visit(func(ref *ContentReference) {
		snap.Downloads = append(snap.Downloads, *ref)
	})

	var visitErr error
	p.uploads.Visit(func(item *UploadItem) {
		if visitErr != nil {
			return
		}
		si, err := snapshotItem(item)
		if err != nil {
			visitErr = err
			return
		}
		snap.Uploads = append(snap.Uploads, si)
	})
	if visitErr != nil {
		return nil, visitErr
	}
	for _, e := range p.history.Entries() {
		si, err := snapshotItem(e.Item)
		if err != nil {
			return nil, err
		}
		snap.History = append(snap.History, SnapshotEntry{Token: e.Token, Item: si, RecordedAt: e.RecordedAt})
	}
	return snap, nil
}

// Checkpoint saves a snapshot to the journal. It is a no-op without one.
func (p *Pipeline) Checkpoint(ctx context.Context) error {
	if p.journal == nil {
		return nil
	}
	snap, err := p.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot pipeline: %w", err)
	}
	if err := p.journal.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	logger.Debug("Pipeline checkpoint saved",
		"downloads", len(snap.Downloads),
		"uploads", len(snap.Uploads),
		"history", len(snap.History))
	return nil
}

// Restore loads the journal snapshot into the pipeline. It should be called
// once, before the scheduler starts. It is a no-op without a journal.
func (p *Pipeline) Restore(ctx context.Context) error {
	if p.journal == nil {
		return nil
	}
	snap, err := p.journal.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		return nil
	}

	for i := range snap.Downloads {
		ref := snap.Downloads[i]
		p.downloads.Push(&ref)
		p.dedup.seen(ref.ID)
	}
	for _, si := range snap.Uploads {
		item, err := restoreItem(si)
		if err != nil {
			logger.Warn("Skipping unrestorable upload item", logger.KeyItem, si.Name, logger.KeyError, err)
			continue
		}
		p.uploads.Push(item)
	}
	for dest, tokens := range snap.Tokens {
		p.tokens.Append(dest, tokens...)
	}
	for _, e := range snap.History {
		item, err := restoreItem(e.Item)
		if err != nil {
			continue
		}
		p.history.record(item, e.Token, e.RecordedAt)
	}
	p.reportDepths()

	logger.Info("Pipeline state restored",
		"downloads", len(snap.Downloads),
		"uploads", len(snap.Uploads),
		"tokens", p.tokens.Total(),
		"history", p.history.Len(),
		"saved_at", snap.SavedAt)
	return nil
}

func snapshotItem(item *UploadItem) (SnapshotItem, error) {
	si := SnapshotItem{
		Name:        item.Name,
		Kind:        item.Kind,
		SourceID:    item.SourceID,
		Destination: item.Destination,
		RetryCount:  item.RetryCount,
		Token:       item.Token,
	}
	switch b := item.Body.(type) {
	case *FileBody:
		si.Path = b.Path
	case BytesBody:
		si.Data = []byte(b)
	default:
		r, err := item.Body.Open()
		if err != nil {
			return SnapshotItem{}, fmt.Errorf("open %s: %w", item.Name, err)
		}
		defer func() { _ = r.Close() }()
		data, err := io.ReadAll(r)
		if err != nil {
			return SnapshotItem{}, fmt.Errorf("read %s: %w", item.Name, err)
		}
		si.Data = data
	}
	return si, nil
}

func restoreItem(si SnapshotItem) (*UploadItem, error) {
	item := &UploadItem{
		Name:        si.Name,
		Kind:        si.Kind,
		SourceID:    si.SourceID,
		Destination: si.Destination,
		RetryCount:  si.RetryCount,
		Token:       si.Token,
	}
	if si.Path != "" {
		body, err := NewFileBody(si.Path)
		if err != nil {
			return nil, err
		}
		item.Body = body
	} else {
		item.Body = BytesBody(si.Data)
	}
	return item, nil
}
