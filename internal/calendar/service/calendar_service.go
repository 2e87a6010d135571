package service

import (
	"Jarvis_Memory/internal/calendar/provider"
	"Jarvis_Memory/internal/calendar/store"
	"Jarvis_Memory/internal/embedding"
	"Jarvis_Memory/internal/models"
	"Jarvis_Memory/internal/vectorstore"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"Jarvis_Memory/pkg/logger"
)

const defaultEventSearchLimit = 10

// EventMatch is one semantic search result with its cosine similarity score.
type EventMatch struct {
	Event *models.CalendarEvent `json:"event"`
	Score float32               `json:"score"`
}

// CalendarService coordinates three stores for one logical calendar: MySQL
// rows are the ground truth, the external provider holds a best-effort remote
// copy, and the vector index serves semantic search. Local writes never fail
// because the provider is down; remote drift is logged and repaired by the
// next successful sync. Event identity is the local row id; provider events
// are linked through the (externalEventID, userID) unique pair.
type CalendarService struct {
	events     store.Store
	prov       provider.Provider
	tokens     provider.TokenSupplier
	index      vectorstore.Index
	embedder   embedding.Embedding
	collection string
	dimension  int
	logger     *logger.Logger
}

// NewCalendarService creates a new CalendarService with injected
// dependencies.
func NewCalendarService(events store.Store, prov provider.Provider, tokens provider.TokenSupplier, index vectorstore.Index, embedder embedding.Embedding, collection string, dimension int, logger *logger.Logger) *CalendarService {
	return &CalendarService{
		events:     events,
		prov:       prov,
		tokens:     tokens,
		index:      index,
		embedder:   embedder,
		collection: collection,
		dimension:  dimension,
		logger:     logger,
	}
}

// EnsureReady initializes the vector collection. Safe to call redundantly and
// concurrently.
func (s *CalendarService) EnsureReady(ctx context.Context) error {
	return s.index.EnsureCollection(ctx, s.collection, s.dimension)
}

// FetchEvents returns the user's events in [start, end], merging the local
// overlap query with a concurrent provider pull. Remote events not yet
// mirrored locally are persisted and indexed during the merge, so repeated
// fetches of the same window are idempotent. A local store failure fails the
// call; a provider failure degrades to local-only results with a warning. A
// user without a linked calendar gets local results without contacting the
// provider.
func (s *CalendarService) FetchEvents(ctx context.Context, userID string, start, end time.Time) ([]*models.CalendarEvent, error) {
	token, linked, err := s.tokens.AccessToken(ctx, userID)
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
			Warn("calendar token lookup failed, serving local events only")
		linked = false
	}

	var (
		wg        sync.WaitGroup
		local     []*models.CalendarEvent
		localErr  error
		remote    []*models.CalendarEvent
		remoteErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		local, localErr = s.events.FindOverlapping(ctx, userID, start, end)
	}()

	if linked {
		wg.Add(1)
		go func() {
			defer wg.Done()
			remote, remoteErr = s.prov.ListEvents(ctx, token, start, end)
		}()
	}
	wg.Wait()

	if localErr != nil {
		return nil, fmt.Errorf("failed to load local events: %w", localErr)
	}
	if remoteErr != nil {
		s.logger.WithError(models.ErrorInfo{Message: remoteErr.Error()}).
			Warn("calendar provider fetch failed, serving local events only")
		return local, nil
	}

	mirrored := make(map[string]bool, len(local))
	for _, event := range local {
		if event.ExternalEventID != nil {
			mirrored[*event.ExternalEventID] = true
		}
	}

	merged := local
	for _, event := range remote {
		if event.ExternalEventID == nil || mirrored[*event.ExternalEventID] {
			continue
		}
		event.UserID = userID
		if err := s.events.Create(ctx, event); err != nil {
			// A concurrent fetch of an overlapping window won the insert race.
			if store.IsDuplicate(err) {
				continue
			}
			s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
				WithPayload(map[string]interface{}{"external_event_id": *event.ExternalEventID}).
				Warn("failed to mirror remote event")
			continue
		}
		s.indexEvent(ctx, event)
		merged = append(merged, event)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Start.Before(merged[j].Start)
	})
	return merged, nil
}

// CreateEvent validates, persists the local row, then best-effort pushes to
// the provider and the vector index. Nothing is written anywhere when
// validation fails. The returned event reflects the persisted sync state: a
// provider failure leaves it local-only, to be pushed by a later sync.
func (s *CalendarService) CreateEvent(ctx context.Context, userID string, event *models.CalendarEvent) (*models.CalendarEvent, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	event.UserID = userID
	event.Synced = false
	event.ExternalEventID = nil
	event.ExternalCalendarID = nil
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	if token, linked, err := s.tokens.AccessToken(ctx, userID); err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
			WithPayload(map[string]interface{}{"event_id": event.ID}).
			Warn("calendar token lookup failed, event stored locally only")
	} else if linked {
		externalID, err := s.prov.CreateEvent(ctx, token, event)
		if err != nil {
			s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
				WithPayload(map[string]interface{}{"event_id": event.ID}).
				Warn("provider create failed, event stored locally only")
		} else if err := s.events.MarkSynced(ctx, event.ID, externalID, s.externalCalendarID(event)); err != nil {
			s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
				WithPayload(map[string]interface{}{"event_id": event.ID}).
				Warn("failed to record provider linkage")
		} else {
			calendarID := s.externalCalendarID(event)
			event.ExternalEventID = &externalID
			event.ExternalCalendarID = &calendarID
			event.Synced = true
		}
	}

	s.indexEvent(ctx, event)
	return event, nil
}

// UpdateEvent applies the patch to a copy of the stored event, validates the
// result and persists it. It returns nil without side effects when no event
// matches, and ErrUnauthorized when the event belongs to another user. The
// new embedding is computed before any store is mutated; the provider update
// is best-effort, with a stale remote copy flagged in the log.
func (s *CalendarService) UpdateEvent(ctx context.Context, userID, eventID string, patch models.CalendarEventPatch) (*models.CalendarEvent, error) {
	current, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if current == nil {
		return nil, nil
	}
	if current.UserID != userID {
		return nil, models.ErrUnauthorized
	}

	updated := patch.Apply(*current)
	if err := validateEvent(&updated); err != nil {
		return nil, err
	}

	// Embed first: no store is mutated if the embedding service is down, so
	// the row and its vector can never disagree about content.
	vector, err := s.embedder.Embed(ctx, eventText(&updated))
	if err != nil {
		return nil, fmt.Errorf("failed to embed updated event: %w", err)
	}

	if err := s.events.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	if updated.Synced && updated.ExternalEventID != nil {
		if token, linked, err := s.tokens.AccessToken(ctx, userID); err != nil || !linked {
			s.logger.WithPayload(map[string]interface{}{"event_id": eventID}).
				Warn("no calendar token, remote copy is stale")
		} else if err := s.prov.UpdateEvent(ctx, token, *updated.ExternalEventID, &updated); err != nil {
			s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
				WithPayload(map[string]interface{}{"event_id": eventID}).
				Warn("provider update failed, remote copy is stale")
		}
	}

	if err := s.index.Upsert(ctx, s.collection, s.eventPoint(&updated, vector)); err != nil {
		// Row updated, point stale: bounded by the next successful write.
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
			WithPayload(map[string]interface{}{"event_id": eventID}).
			Warn("vector point not refreshed after event update")
	}

	return &updated, nil
}

// DeleteEvent removes the event everywhere. It returns false without error
// when no event matches, and ErrUnauthorized for another user's event. The
// provider delete is best-effort; the local row is authoritative and its
// deletion decides the outcome. A vector delete failure is returned so the
// caller can retry, since retrying the whole call is idempotent.
func (s *CalendarService) DeleteEvent(ctx context.Context, userID, eventID string) (bool, error) {
	current, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("failed to load event: %w", err)
	}
	if current == nil {
		return false, nil
	}
	if current.UserID != userID {
		return false, models.ErrUnauthorized
	}

	if current.Synced && current.ExternalEventID != nil {
		if token, linked, err := s.tokens.AccessToken(ctx, userID); err != nil || !linked {
			s.logger.WithPayload(map[string]interface{}{"event_id": eventID}).
				Warn("no calendar token, remote copy not deleted")
		} else if err := s.prov.DeleteEvent(ctx, token, *current.ExternalEventID); err != nil {
			s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
				WithPayload(map[string]interface{}{"event_id": eventID}).
				Warn("provider delete failed, remote copy orphaned")
		}
	}

	deleted, err := s.events.Delete(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("failed to delete event: %w", err)
	}
	if !deleted {
		return false, nil
	}

	if err := s.index.Delete(ctx, s.collection, []string{eventID}); err != nil {
		return false, fmt.Errorf("failed to delete vector point: %w", err)
	}
	return true, nil
}

// SearchEvents runs a semantic search over the user's events. The user_id
// filter is applied inside the index, so another user's events can never
// appear regardless of semantic similarity. Results are rebuilt from the
// indexed payload and ordered by descending similarity. Dependency failures
// degrade to an empty result and are logged.
func (s *CalendarService) SearchEvents(ctx context.Context, userID, query string, limit int) ([]EventMatch, error) {
	if limit <= 0 {
		limit = defaultEventSearchLimit
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("failed to embed search query")
		return nil, nil
	}

	hits, err := s.index.Search(ctx, s.collection, vector, limit, vectorstore.Filter{"user_id": userID})
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("event vector search failed")
		return nil, nil
	}

	matches := make([]EventMatch, 0, len(hits))
	for _, hit := range hits {
		event, err := eventFromPayload(hit.ID, hit.UserID, hit.Payload)
		if err != nil {
			s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
				WithPayload(map[string]interface{}{"event_id": hit.ID}).
				Warn("skipping malformed event payload")
			continue
		}
		matches = append(matches, EventMatch{Event: event, Score: hit.Score})
	}
	return matches, nil
}

// Reindex rebuilds the user's slice of the vector index from the relational
// ground truth: every event row is re-embedded and re-upserted, repairing
// events left unindexed by a failed embed or upsert. Per-event failures are
// logged and skipped so one bad row cannot block recovery. Returns the number
// of events successfully reindexed.
func (s *CalendarService) Reindex(ctx context.Context, userID string) (int, error) {
	rows, err := s.events.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list events: %w", err)
	}

	reindexed := 0
	for _, row := range rows {
		vector, err := s.embedder.Embed(ctx, eventText(row))
		if err != nil {
			s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
				WithPayload(map[string]interface{}{"event_id": row.ID}).
				Warn("reindex: embedding failed, skipping event")
			continue
		}
		if err := s.index.Upsert(ctx, s.collection, s.eventPoint(row, vector)); err != nil {
			s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
				WithPayload(map[string]interface{}{"event_id": row.ID}).
				Warn("reindex: vector upsert failed, skipping event")
			continue
		}
		reindexed++
	}
	return reindexed, nil
}

// indexEvent embeds and upserts the event's vector point. Indexing is
// best-effort everywhere it is used; failures are logged, never propagated.
func (s *CalendarService) indexEvent(ctx context.Context, event *models.CalendarEvent) {
	vector, err := s.embedder.Embed(ctx, eventText(event))
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
			WithPayload(map[string]interface{}{"event_id": event.ID}).
			Warn("event stored without vector index entry")
		return
	}
	if err := s.index.Upsert(ctx, s.collection, s.eventPoint(event, vector)); err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
			WithPayload(map[string]interface{}{"event_id": event.ID}).
			Warn("event stored without vector index entry")
	}
}

func (s *CalendarService) eventPoint(event *models.CalendarEvent, vector []float32) vectorstore.Point {
	return vectorstore.Point{
		ID:     event.ID,
		Vector: vector,
		UserID: event.UserID,
		Payload: map[string]interface{}{
			"title":       event.Title,
			"description": event.Description,
			"location":    event.Location,
			"start":       event.Start.Format(time.RFC3339),
			"end":         event.End.Format(time.RFC3339),
			"is_all_day":  event.IsAllDay,
		},
	}
}

func (s *CalendarService) externalCalendarID(event *models.CalendarEvent) string {
	if event.ExternalCalendarID != nil {
		return *event.ExternalCalendarID
	}
	return "primary"
}

func eventText(event *models.CalendarEvent) string {
	parts := []string{event.Title}
	if event.Description != "" {
		parts = append(parts, event.Description)
	}
	if event.Location != "" {
		parts = append(parts, event.Location)
	}
	return strings.Join(parts, "\n")
}

func eventFromPayload(id, userID string, payload map[string]interface{}) (*models.CalendarEvent, error) {
	event := &models.CalendarEvent{ID: id, UserID: userID}
	event.Title, _ = payload["title"].(string)
	event.Description, _ = payload["description"].(string)
	event.Location, _ = payload["location"].(string)
	event.IsAllDay, _ = payload["is_all_day"].(bool)

	startRaw, _ := payload["start"].(string)
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid start time in payload: %w", err)
	}
	endRaw, _ := payload["end"].(string)
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid end time in payload: %w", err)
	}
	event.Start = start
	event.End = end
	return event, nil
}

func validateEvent(event *models.CalendarEvent) error {
	if event.Title == "" {
		return fmt.Errorf("%w: title is required", models.ErrInvalidInput)
	}
	if event.Start.IsZero() || event.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", models.ErrInvalidInput)
	}
	if !event.End.After(event.Start) {
		return fmt.Errorf("%w: end must be after start", models.ErrInvalidInput)
	}
	return nil
}
