package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/girlpunk/ytsm/internal/models"
	"github.com/girlpunk/ytsm/internal/providers"
	"github.com/girlpunk/ytsm/internal/repositories"
	"github.com/girlpunk/ytsm/internal/shared"
	"github.com/girlpunk/ytsm/internal/tasks"
)

// stubProvider recognizes youtube.com URLs and serves a canned feed.
type stubProvider struct {
	items []models.RemoteItem
}

func (s *stubProvider) Kind() models.ProviderKind { return models.ProviderYouTube }

func (s *stubProvider) FetchFeed(ctx context.Context, sub *models.Subscription, mode providers.FeedMode) ([]models.RemoteItem, error) {
	return s.items, nil
}

func (s *stubProvider) FetchStats(ctx context.Context, videoID string) (*models.Stats, error) {
	return nil, nil
}

func (s *stubProvider) MatchURL(raw string) bool {
	return strings.Contains(raw, "youtube.com")
}

func (s *stubProvider) FillSubscription(ctx context.Context, raw string, sub *models.Subscription) error {
	if strings.Contains(raw, "broken") {
		return fmt.Errorf("%w: channel page unreachable", shared.ErrTransport)
	}
	sub.Name = "Uploads"
	sub.PlaylistID = "UUtest"
	sub.ChannelID = "UCtest"
	sub.ChannelName = "Some Channel"
	sub.Provider = models.ProviderYouTube
	return nil
}

type apiFixture struct {
	db      *sql.DB
	router  *BasicRouter
	users   *repositories.UserRepository
	folders *repositories.FolderRepository
	subs    *repositories.SubscriptionRepository
	videos  *repositories.VideoRepository
	user    *models.User
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	logger := shared.NewLogger(nil)
	users := repositories.NewUserRepository(db)
	folders := repositories.NewFolderRepository(db)
	subs := repositories.NewSubscriptionRepository(db)
	videos := repositories.NewVideoRepository(db)
	registry := providers.NewRegistry(&stubProvider{})

	engine := tasks.NewEngine(tasks.EngineOpts{
		Subscriptions: subs,
		Videos:        videos,
		Users:         users,
		Folders:       folders,
		Registry:      registry,
		Logger:        logger,
	})
	queue := tasks.NewQueue(1, logger)
	engine.SetResync(func(subscriptionID string) {
		queue.Enqueue(tasks.TaskSynchronize, subscriptionID, func(ctx context.Context) error {
			return engine.Synchronize(ctx, subscriptionID)
		})
	})

	user := &models.User{
		Username:            "admin",
		DownloadOrder:       models.OrderPlaylist,
		MaxDownloadAttempts: 3,
		DownloadDir:         t.TempDir(),
	}
	if err := users.Create(user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	router := NewBasicRouter()
	router.Handler(NewAPIHandler(users, folders, subs, videos, registry, engine, queue, "admin", logger))

	return &apiFixture{
		db:      db,
		router:  router,
		users:   users,
		folders: folders,
		subs:    subs,
		videos:  videos,
		user:    user,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("response is not valid JSON: %v (%s)", err, rec.Body.String())
	}
	return v
}

func (f *apiFixture) createSubscription(t *testing.T) *models.Subscription {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/subscriptions", map[string]string{
		"url": "https://www.youtube.com/channel/UCtest",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	sub := decode[*models.Subscription](t, rec)
	return sub
}

func TestSubscriptionEndpoints(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		f := newAPIFixture(t)

		sub := f.createSubscription(t)
		if sub.Name != "Uploads" || sub.PlaylistID != "UUtest" {
			t.Errorf("unexpected subscription %+v", sub)
		}

		stored, err := f.subs.Get(sub.ID)
		if err != nil {
			t.Fatalf("subscription not persisted: %v", err)
		}
		if stored.Provider != models.ProviderYouTube {
			t.Errorf("expected youtube provider, got %s", stored.Provider)
		}
	})

	t.Run("create duplicate", func(t *testing.T) {
		f := newAPIFixture(t)
		f.createSubscription(t)

		rec := f.do(t, http.MethodPost, "/api/subscriptions", map[string]string{
			"url": "https://www.youtube.com/channel/UCtest",
		})
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("create with unmatched URL", func(t *testing.T) {
		f := newAPIFixture(t)

		rec := f.do(t, http.MethodPost, "/api/subscriptions", map[string]string{
			"url": "https://vimeo.com/somechannel",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("create with unreachable channel", func(t *testing.T) {
		f := newAPIFixture(t)

		rec := f.do(t, http.MethodPost, "/api/subscriptions", map[string]string{
			"url": "https://www.youtube.com/channel/broken",
		})
		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
	})

	t.Run("list", func(t *testing.T) {
		f := newAPIFixture(t)
		f.createSubscription(t)

		rec := f.do(t, http.MethodGet, "/api/subscriptions", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		subs := decode[[]*models.Subscription](t, rec)
		if len(subs) != 1 {
			t.Errorf("expected 1 subscription, got %d", len(subs))
		}
	})

	t.Run("get unknown", func(t *testing.T) {
		f := newAPIFixture(t)

		rec := f.do(t, http.MethodGet, "/api/subscriptions/nope", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("update overrides", func(t *testing.T) {
		f := newAPIFixture(t)
		sub := f.createSubscription(t)

		rec := f.do(t, http.MethodPut, "/api/subscriptions/"+sub.ID, map[string]any{
			"name":           "Renamed",
			"auto_download":  true,
			"download_limit": 10,
			"download_order": "newest",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		updated, err := f.subs.Get(sub.ID)
		if err != nil {
			t.Fatalf("failed to reload subscription: %v", err)
		}
		if updated.Name != "Renamed" {
			t.Errorf("expected renamed subscription, got %s", updated.Name)
		}
		if updated.AutoDownload == nil || !*updated.AutoDownload {
			t.Error("expected auto download override")
		}
		if updated.DownloadOrder == nil || *updated.DownloadOrder != models.OrderNewest {
			t.Error("expected newest download order override")
		}
	})

	t.Run("update with invalid order", func(t *testing.T) {
		f := newAPIFixture(t)
		sub := f.createSubscription(t)

		rec := f.do(t, http.MethodPut, "/api/subscriptions/"+sub.ID, map[string]string{
			"download_order": "sideways",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		f := newAPIFixture(t)
		sub := f.createSubscription(t)

		rec := f.do(t, http.MethodDelete, "/api/subscriptions/"+sub.ID, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if _, err := f.subs.Get(sub.ID); err == nil {
			t.Error("expected subscription to be gone")
		}
	})

	t.Run("sync enqueues once", func(t *testing.T) {
		f := newAPIFixture(t)
		sub := f.createSubscription(t)

		rec := f.do(t, http.MethodPost, "/api/subscriptions/"+sub.ID+"/sync", nil)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
		// Creation already queued a sync for this subscription; the
		// duplicate is dropped while it is still pending.
		resp := decode[map[string]bool](t, rec)
		if resp["queued"] {
			t.Error("expected duplicate sync to be dropped")
		}
	})

	t.Run("sync unknown", func(t *testing.T) {
		f := newAPIFixture(t)

		rec := f.do(t, http.MethodPost, "/api/subscriptions/nope/sync", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestFolderEndpoints(t *testing.T) {
	t.Run("create and list", func(t *testing.T) {
		f := newAPIFixture(t)

		rec := f.do(t, http.MethodPost, "/api/folders", map[string]string{"name": "Tech"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		rec = f.do(t, http.MethodGet, "/api/folders", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		folders := decode[[]*models.SubscriptionFolder](t, rec)
		if len(folders) != 1 || folders[0].Name != "Tech" {
			t.Errorf("unexpected folders %+v", folders)
		}
	})

	t.Run("duplicate sibling name", func(t *testing.T) {
		f := newAPIFixture(t)

		f.do(t, http.MethodPost, "/api/folders", map[string]string{"name": "Tech"})
		rec := f.do(t, http.MethodPost, "/api/folders", map[string]string{"name": "tech"})
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("reparent cycle", func(t *testing.T) {
		f := newAPIFixture(t)

		parent := decode[*models.SubscriptionFolder](t, f.do(t, http.MethodPost, "/api/folders", map[string]string{"name": "Parent"}))
		child := decode[*models.SubscriptionFolder](t, f.do(t, http.MethodPost, "/api/folders", map[string]any{
			"name":      "Child",
			"parent_id": parent.ID,
		}))

		rec := f.do(t, http.MethodPut, "/api/folders/"+parent.ID, map[string]any{
			"parent_id": child.ID,
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for cycle, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("delete", func(t *testing.T) {
		f := newAPIFixture(t)

		folder := decode[*models.SubscriptionFolder](t, f.do(t, http.MethodPost, "/api/folders", map[string]string{"name": "Tech"}))
		rec := f.do(t, http.MethodDelete, "/api/folders/"+folder.ID, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})

	t.Run("sync queues subtree", func(t *testing.T) {
		f := newAPIFixture(t)

		folder := decode[*models.SubscriptionFolder](t, f.do(t, http.MethodPost, "/api/folders", map[string]string{"name": "Tech"}))

		sub := f.createSubscription(t)
		f.do(t, http.MethodPut, "/api/subscriptions/"+sub.ID, map[string]string{
			"parent_folder_id": folder.ID,
		})

		rec := f.do(t, http.MethodPost, "/api/folders/"+folder.ID+"/sync", nil)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestVideoEndpoints(t *testing.T) {
	seedVideo := func(t *testing.T, f *apiFixture, subID string) *models.Video {
		t.Helper()
		video := &models.Video{
			VideoID:        "abc123",
			SubscriptionID: subID,
			Name:           "First Video",
			PlaylistIndex:  0,
		}
		if err := f.videos.Create(video); err != nil {
			t.Fatalf("failed to seed video: %v", err)
		}
		return video
	}

	t.Run("list by subscription", func(t *testing.T) {
		f := newAPIFixture(t)
		sub := f.createSubscription(t)
		seedVideo(t, f, sub.ID)

		rec := f.do(t, http.MethodGet, "/api/subscriptions/"+sub.ID+"/videos", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		videos := decode[[]*models.Video](t, rec)
		if len(videos) != 1 || videos[0].VideoID != "abc123" {
			t.Errorf("unexpected videos %+v", videos)
		}
	})

	t.Run("watch", func(t *testing.T) {
		f := newAPIFixture(t)
		sub := f.createSubscription(t)
		video := seedVideo(t, f, sub.ID)

		rec := f.do(t, http.MethodPost, "/api/videos/"+video.ID+"/watch", nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
		}

		stored, err := f.videos.Get(video.ID)
		if err != nil {
			t.Fatalf("failed to reload video: %v", err)
		}
		if !stored.Watched {
			t.Error("expected video to be watched")
		}
	})

	t.Run("unwatch", func(t *testing.T) {
		f := newAPIFixture(t)
		sub := f.createSubscription(t)
		video := seedVideo(t, f, sub.ID)
		video.Watched = true
		if err := f.videos.Update(video); err != nil {
			t.Fatalf("failed to mark watched: %v", err)
		}

		rec := f.do(t, http.MethodPost, "/api/videos/"+video.ID+"/unwatch", nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}

		stored, _ := f.videos.Get(video.ID)
		if stored.Watched {
			t.Error("expected video to be unwatched")
		}
	})

	t.Run("watch unknown video", func(t *testing.T) {
		f := newAPIFixture(t)

		rec := f.do(t, http.MethodPost, "/api/videos/nope/watch", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestSyncAndNotificationEndpoints(t *testing.T) {
	t.Run("sync all", func(t *testing.T) {
		f := newAPIFixture(t)
		f.createSubscription(t)

		rec := f.do(t, http.MethodPost, "/api/sync", nil)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
	})

	t.Run("push notification creates video", func(t *testing.T) {
		f := newAPIFixture(t)
		sub := f.createSubscription(t)

		rec := f.do(t, http.MethodPost, "/api/notifications/newvid1", map[string]string{
			"subscription_id": sub.ID,
			"title":           "Announced Video",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		video := decode[*models.Video](t, rec)
		if video.VideoID != "newvid1" || !video.New {
			t.Errorf("unexpected video %+v", video)
		}
	})

	t.Run("push notification for known video", func(t *testing.T) {
		f := newAPIFixture(t)
		sub := f.createSubscription(t)

		first := f.do(t, http.MethodPost, "/api/notifications/newvid1", map[string]string{
			"subscription_id": sub.ID,
			"title":           "Announced Video",
		})
		if first.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", first.Code)
		}

		second := f.do(t, http.MethodPost, "/api/notifications/newvid1", map[string]string{
			"subscription_id": sub.ID,
			"title":           "Announced Video",
		})
		if second.Code != http.StatusNoContent {
			t.Errorf("expected 204 for known video, got %d", second.Code)
		}
	})

	t.Run("push notification without subscription", func(t *testing.T) {
		f := newAPIFixture(t)

		rec := f.do(t, http.MethodPost, "/api/notifications/newvid1", map[string]string{
			"title": "Announced Video",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newAPIFixture(t)

		rec := f.do(t, http.MethodGet, "/api/subscriptions?user=ghost", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}
