package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LotTrace/LotTrace/internal/archive"
	"github.com/LotTrace/LotTrace/internal/car"
)

type archiveBackend struct {
	srv          *httptest.Server
	deleteCalls  atomic.Int64
	createCalls  atomic.Int64
	refreshCalls atomic.Int64
}

func newArchiveBackend(t *testing.T) *archiveBackend {
	t.Helper()
	ab := &archiveBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/archives", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			ab.deleteCalls.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]int64{"deleted_count": 2})
			return
		}
		_ = json.NewEncoder(w).Encode([]archive.Archive{{ID: "a1", ArchiveName: "Januar 2026"}})
	})
	mux.HandleFunc("/api/archives/create-monthly", func(w http.ResponseWriter, r *http.Request) {
		ab.createCalls.Add(1)
		var body struct {
			ArchiveName string `json:"archive_name"`
			Month       int    `json:"month"`
			Year        int    `json:"year"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(archive.Archive{
			ID: "a2", ArchiveName: body.ArchiveName, Month: body.Month, Year: body.Year, TotalCars: 5,
		})
	})
	mux.HandleFunc("/api/archives/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			ab.deleteCalls.Add(1)
		}
		_ = json.NewEncoder(w).Encode(archive.Archive{ID: "a1"})
	})
	mux.HandleFunc("/api/cars", func(w http.ResponseWriter, r *http.Request) {
		ab.refreshCalls.Add(1)
		_ = json.NewEncoder(w).Encode([]car.Car{})
	})
	mux.HandleFunc("/api/cars/stats/summary", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(car.Stats{})
	})
	mux.HandleFunc("/api/cars/available-months", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]car.MonthYear{})
	})
	ab.srv = httptest.NewServer(mux)
	t.Cleanup(ab.srv.Close)
	return ab
}

func newArchiveFlow(ab *archiveBackend) *ArchiveFlow {
	client := NewClient(ab.srv.URL, 5*time.Second)
	return NewArchiveFlow(client, NewQueryService(client, nil), nil)
}

func TestCreateMonthlyValidatesLocally(t *testing.T) {
	ab := newArchiveBackend(t)
	flow := newArchiveFlow(ab)
	ctx := context.Background()

	if _, err := flow.CreateMonthly(ctx, "", 1, 2026); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if _, err := flow.CreateMonthly(ctx, "X", 0, 2026); err == nil {
		t.Fatalf("expected error for month 0")
	}
	if _, err := flow.CreateMonthly(ctx, "X", 13, 2026); err == nil {
		t.Fatalf("expected error for month 13")
	}
	if ab.createCalls.Load() != 0 {
		t.Fatalf("local validation must not hit the network")
	}
}

func TestCreateMonthlyRefreshesDashboard(t *testing.T) {
	ab := newArchiveBackend(t)
	flow := newArchiveFlow(ab)

	a, err := flow.CreateMonthly(context.Background(), "Januar 2026", 1, 2026)
	if err != nil {
		t.Fatalf("CreateMonthly: %v", err)
	}
	if a.ArchiveName != "Januar 2026" || a.TotalCars != 5 {
		t.Fatalf("unexpected archive: %+v", a)
	}
	if ab.refreshCalls.Load() != 1 {
		t.Fatalf("expected one dashboard refresh, got %d", ab.refreshCalls.Load())
	}
}

func TestDeleteRequiresExactConfirmPhrase(t *testing.T) {
	ab := newArchiveBackend(t)
	flow := newArchiveFlow(ab)
	ctx := context.Background()

	for _, phrase := range []string{"", "löschen", "LOSCHEN", "LÖSCHEN ", "DELETE"} {
		if err := flow.Delete(ctx, "a1", phrase); !errors.Is(err, ErrConfirmMismatch) {
			t.Fatalf("phrase %q: expected ErrConfirmMismatch, got %v", phrase, err)
		}
		if _, err := flow.DeleteAll(ctx, phrase); !errors.Is(err, ErrConfirmMismatch) {
			t.Fatalf("phrase %q: expected ErrConfirmMismatch, got %v", phrase, err)
		}
	}
	if ab.deleteCalls.Load() != 0 {
		t.Fatalf("mismatched phrase must not hit the network")
	}

	if err := flow.Delete(ctx, "a1", DeleteConfirmPhrase); err != nil {
		t.Fatalf("Delete with correct phrase: %v", err)
	}
	n, err := flow.DeleteAll(ctx, DeleteConfirmPhrase)
	if err != nil {
		t.Fatalf("DeleteAll with correct phrase: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected deleted_count 2, got %d", n)
	}
	if ab.deleteCalls.Load() != 2 {
		t.Fatalf("expected 2 delete requests, got %d", ab.deleteCalls.Load())
	}
	if ab.refreshCalls.Load() != 2 {
		t.Fatalf("expected one refresh per delete, got %d", ab.refreshCalls.Load())
	}
}

func TestListAndGetArchives(t *testing.T) {
	ab := newArchiveBackend(t)
	flow := newArchiveFlow(ab)
	ctx := context.Background()

	list, err := flow.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ArchiveName != "Januar 2026" {
		t.Fatalf("unexpected list: %+v", list)
	}

	a, err := flow.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a.ID != "a1" {
		t.Fatalf("unexpected archive: %+v", a)
	}
	if _, err := flow.Get(ctx, ""); err == nil {
		t.Fatalf("expected error for empty id")
	}
}
