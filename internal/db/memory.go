package db

import (
	"context"
	"sync"

	"github.com/rtpcraft/randomtp/internal/db/model"
)

// MemoryDatabase keeps documents in process. It backs the memory store
// backend and tests.
type MemoryDatabase struct {
	mu   sync.RWMutex
	docs map[string]model.ParticipantDocument
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{docs: make(map[string]model.ParticipantDocument)}
}

func (m *MemoryDatabase) Ping(context.Context) error {
	return nil
}

func (m *MemoryDatabase) GetParticipant(_ context.Context, id string) (*model.ParticipantDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok {
		return nil, &NotFoundError{
			Key:     id,
			Message: "participant not found",
		}
	}
	return &doc, nil
}

func (m *MemoryDatabase) UpsertParticipants(_ context.Context, docs []*model.ParticipantDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, doc := range docs {
		m.docs[doc.ID] = *doc
	}
	return nil
}
