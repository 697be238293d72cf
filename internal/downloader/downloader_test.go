package downloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/girlpunk/ytsm/internal/models"
)

func TestListLocalFiles(t *testing.T) {
	t.Run("matches the prefix only", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"vid.mp4", "vid.en.vtt", "other.mp4"} {
			if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
				t.Fatalf("failed to write fixture: %v", err)
			}
		}

		files, err := ListLocalFiles(filepath.Join(dir, "vid"))
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(files) != 2 {
			t.Errorf("expected 2 files, got %d: %v", len(files), files)
		}
	})

	t.Run("missing directory reads as no files", func(t *testing.T) {
		files, err := ListLocalFiles("/nonexistent/dir/vid")
		if err != nil {
			t.Fatalf("missing directory should not error: %v", err)
		}
		if files != nil {
			t.Errorf("expected no files, got %v", files)
		}
	})

	t.Run("empty prefix reads as no files", func(t *testing.T) {
		files, err := ListLocalFiles("")
		if err != nil {
			t.Fatalf("empty prefix should not error: %v", err)
		}
		if files != nil {
			t.Errorf("expected no files, got %v", files)
		}
	})
}

func TestFindVideoFile(t *testing.T) {
	if got := FindVideoFile([]string{"a.vtt", "a.jpg", "a.mp4"}); got != "a.mp4" {
		t.Errorf("expected a.mp4, got %q", got)
	}
	if got := FindVideoFile([]string{"a.vtt", "a.jpg"}); got != "" {
		t.Errorf("expected no match, got %q", got)
	}
	if got := FindVideoFile(nil); got != "" {
		t.Errorf("expected no match for nil, got %q", got)
	}
}

func TestRemoveFiles(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "a.mp4")
	if err := os.WriteFile(present, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	removed, err := RemoveFiles([]string{present, filepath.Join(dir, "gone.mp4")})
	if err == nil {
		t.Error("expected an error for the missing file")
	}
	if removed != 1 {
		t.Errorf("expected 1 removal, got %d", removed)
	}
	if _, statErr := os.Stat(present); !os.IsNotExist(statErr) {
		t.Error("present file should be removed despite the error")
	}
}

func TestOutputPath(t *testing.T) {
	user := &models.User{
		DownloadDir:         "/media/videos",
		DownloadFilePattern: "${channel}/${playlist_index} - ${title} [${id}]",
	}
	sub := &models.Subscription{
		Name:        "Uploads",
		ChannelName: "Some: Channel",
	}
	video := &models.Video{
		VideoID:       "abc123",
		Name:          "A/B Testing?",
		PlaylistIndex: 7,
		PublishDate:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	got := OutputPath(user, sub, video)
	want := "/media/videos/Some_ Channel/07 - A_B Testing_ [abc123]"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestOutputPathDefaultPattern(t *testing.T) {
	user := &models.User{DownloadDir: "/media/videos"}
	sub := &models.Subscription{Name: "Uploads", ChannelName: "Channel"}
	video := &models.Video{VideoID: "abc123", Name: "Title"}

	got := OutputPath(user, sub, video)
	want := "/media/videos/Channel/Uploads/Title [abc123]"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
