package dealersync

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// newQueueID mints a queue item id. ULIDs sort lexicographically by
// creation time, so "ORDER BY id" is delivery order.
func newQueueID() string {
	return ulid.Make().String()
}

func enqueueTx(q dbtx, item QueueItem) error {
	_, err := q.Exec(`
		INSERT INTO sync_queue (id, entity_type, operation, payload, dealer_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, item.ID, string(item.EntityType), string(item.Operation), item.Payload,
		item.DealerID.String(), encTime(item.CreatedAt))
	if err != nil {
		return fmt.Errorf("enqueue %s %s: %w", item.Operation, item.EntityType, err)
	}
	return nil
}

// Enqueue appends an outbound mutation directly. Entity saves and deletes
// enqueue within their own transaction; this is for callers that manage
// rows themselves.
func (s *Store) Enqueue(item QueueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if !item.EntityType.IsValid() {
		return ErrUnknownEntityType
	}
	if item.ID == "" {
		item.ID = newQueueID()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	return enqueueTx(s.db, item)
}

// Pending returns all queued mutations in creation order.
func (s *Store) Pending() ([]QueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT id, entity_type, operation, payload, dealer_id, created_at
		FROM sync_queue ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []QueueItem
	for rows.Next() {
		var (
			item               QueueItem
			et, op, dealer, ts string
		)
		if err := rows.Scan(&item.ID, &et, &op, &item.Payload, &dealer, &ts); err != nil {
			return nil, err
		}
		item.EntityType = EntityType(et)
		item.Operation = Operation(op)
		item.DealerID = decUUID(dealer)
		item.CreatedAt = decTime(ts)
		items = append(items, item)
	}
	return items, rows.Err()
}

// RemoveQueued deletes a delivered queue item.
func (s *Store) RemoveQueued(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	_, err := s.db.Exec(`DELETE FROM sync_queue WHERE id = ?`, id)
	return err
}

// QueueCount returns the number of pending mutations.
func (s *Store) QueueCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sync_queue`).Scan(&n)
	return n, err
}

// QueueSummary breaks the pending queue down by entity type and operation.
func (s *Store) QueueSummary() (*QueueSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT entity_type, operation, COUNT(*)
		FROM sync_queue GROUP BY entity_type, operation
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := &QueueSummary{
		ByType: make(map[EntityType]int),
		ByOp:   make(map[Operation]int),
	}
	for rows.Next() {
		var (
			et, op string
			n      int
		)
		if err := rows.Scan(&et, &op, &n); err != nil {
			return nil, err
		}
		summary.Total += n
		summary.ByType[EntityType(et)] += n
		summary.ByOp[Operation(op)] += n
	}
	return summary, rows.Err()
}

// PendingDeleteIDs collects the ids of queued local deletes per entity type.
// The merge pass shields these rows: a remote upsert must not resurrect a
// row the user deleted while offline.
func (s *Store) PendingDeleteIDs(dealerID uuid.UUID) (map[EntityType]map[uuid.UUID]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT entity_type, payload FROM sync_queue
		WHERE operation = ? AND dealer_id = ?
	`, string(OpDelete), dealerID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pending := make(map[EntityType]map[uuid.UUID]struct{})
	for rows.Next() {
		var (
			et      string
			payload []byte
		)
		if err := rows.Scan(&et, &payload); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(string(payload))
		if err != nil {
			continue
		}
		entity := EntityType(et)
		if pending[entity] == nil {
			pending[entity] = make(map[uuid.UUID]struct{})
		}
		pending[entity][id] = struct{}{}
	}
	return pending, rows.Err()
}
