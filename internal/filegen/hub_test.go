package filegen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentoria-ai/mentoria/internal/config"
	"github.com/mentoria-ai/mentoria/pkg/domain"
)

func drainFeed(feed <-chan domain.GenerationProgress) []domain.GenerationProgress {
	var out []domain.GenerationProgress
	for {
		select {
		case p := <-feed:
			out = append(out, p)
		default:
			return out
		}
	}
}

func TestProgressHubFansOutPerOwner(t *testing.T) {
	hub := NewProgressHub()
	alice, cancelAlice := hub.Subscribe("alice")
	defer cancelAlice()
	bob, cancelBob := hub.Subscribe("bob")
	defer cancelBob()

	hub.Notify("alice", domain.GenerationProgress{FileID: "f1", Status: domain.StatusGenerating})
	hub.Notify("carol", domain.GenerationProgress{FileID: "f2", Status: domain.StatusGenerating})

	got := drainFeed(alice)
	require.Len(t, got, 1)
	assert.Equal(t, "f1", got[0].FileID)
	assert.Empty(t, drainFeed(bob))
}

func TestProgressHubCancelClosesFeed(t *testing.T) {
	hub := NewProgressHub()
	feed, cancel := hub.Subscribe("alice")
	cancel()

	_, open := <-feed
	assert.False(t, open)

	// Events after cancel go nowhere and must not panic.
	hub.Notify("alice", domain.GenerationProgress{FileID: "f1"})
}

func TestProgressHubDropsForLaggingSubscriber(t *testing.T) {
	hub := NewProgressHub()
	feed, cancel := hub.Subscribe("alice")
	defer cancel()

	// Twice the buffer: the surplus is dropped instead of blocking Notify.
	for i := 0; i < 2*subscriberBuffer; i++ {
		hub.Notify("alice", domain.GenerationProgress{FileID: "f1", Progress: i})
	}
	assert.Len(t, drainFeed(feed), subscriberBuffer)
}

func TestProgressHubReceivesGenerationLifecycle(t *testing.T) {
	hub := NewProgressHub()
	feed, cancel := hub.Subscribe("owner-1")
	defer cancel()

	project := &domain.Project{ID: "p1", Name: "Biologia"}
	svc := NewService(
		newFakeFileRepo(), &fakeProjects{project: project},
		&fakeObjects{objects: map[string][]byte{}},
		fakeEmbedder{}, &fakeVectors{}, &fakeChat{response: "## Resumo\n\nConteúdo gerado."},
		fakePDFEngine{}, hub,
		config.RAGConfig{MaxChunks: 5, SimilarityThreshold: 0.4},
	)

	_, err := svc.CreateFile(context.Background(), CreateParams{
		ProjectID: "p1", OwnerID: "owner-1",
		Prompt:      "crie um resumo sobre fotossíntese",
		DisplayName: "Resumo",
		Type:        domain.FileTypeSummary, Format: domain.FormatMarkdown,
	})
	require.NoError(t, err)
	svc.Wait()

	events := drainFeed(feed)
	statuses := make([]domain.JobStatus, len(events))
	for i, e := range events {
		statuses[i] = e.Status
	}
	assert.Equal(t, []domain.JobStatus{domain.StatusGenerating, domain.StatusCompleted}, statuses)
}
