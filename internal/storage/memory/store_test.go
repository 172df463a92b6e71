// internal/storage/memory/store_test.go
package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/overtone-games/lobby/internal/models"
	"github.com/overtone-games/lobby/internal/storage"
)

func newRoom(id string) *models.Room {
	return &models.Room{
		ID:          id,
		ShortCode:   "CODE" + id[:2],
		GameVersion: "1.0.0",
		Name:        "Room " + id,
		Visibility:  models.VisibilityPublic,
		MaxPlayers:  6,
		State:       models.StateOpen,
		Connection:  &models.RoomConnection{Host: "host", Port: 7777},
	}
}

func TestCreateAndGetRoom(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	room := newRoom("aa")
	if err := s.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if err := s.CreateRoom(ctx, newRoom("aa")); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate CreateRoom = %v, want ErrAlreadyExists", err)
	}

	got, err := s.GetRoom(ctx, "aa")
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if got.Name != room.Name {
		t.Fatalf("name = %q, want %q", got.Name, room.Name)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("timestamps not set on create")
	}

	// Mutating the returned copy must not touch the stored record.
	got.Name = "hacked"
	again, _ := s.GetRoom(ctx, "aa")
	if again.Name == "hacked" {
		t.Fatal("GetRoom returned a shared reference")
	}

	if _, err := s.GetRoom(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetRoom(missing) = %v, want ErrNotFound", err)
	}
}

func TestFindRoomByShortCode(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	open := newRoom("aa")
	open.ShortCode = "OPEN01"
	closed := newRoom("bb")
	closed.ShortCode = "GONE01"
	closed.State = models.StateClosed

	s.CreateRoom(ctx, open)
	s.CreateRoom(ctx, closed)

	got, err := s.FindRoomByShortCode(ctx, "1.0.0", "OPEN01")
	if err != nil {
		t.Fatalf("FindRoomByShortCode: %v", err)
	}
	if got.ID != "aa" {
		t.Fatalf("found %q, want aa", got.ID)
	}

	if _, err := s.FindRoomByShortCode(ctx, "1.0.0", "GONE01"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("closed room resolved by code: %v", err)
	}
	if _, err := s.FindRoomByShortCode(ctx, "2.0.0", "OPEN01"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("code resolved across game versions: %v", err)
	}
}

func TestUpdateRoomAtomicity(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.CreateRoom(ctx, newRoom("aa"))

	boom := errors.New("boom")
	_, err := s.UpdateRoom(ctx, "aa", func(room *models.Room) error {
		room.CurrentPlayers = 99
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("UpdateRoom = %v, want mutator error", err)
	}

	got, _ := s.GetRoom(ctx, "aa")
	if got.CurrentPlayers != 0 {
		t.Fatal("failed mutation leaked into the stored record")
	}

	updated, err := s.UpdateRoom(ctx, "aa", func(room *models.Room) error {
		room.CurrentPlayers++
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateRoom: %v", err)
	}
	if updated.CurrentPlayers != 1 {
		t.Fatalf("players = %d, want 1", updated.CurrentPlayers)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt.Add(-time.Second)) {
		t.Fatal("UpdatedAt not refreshed")
	}
}

func TestUpdateRoomSerializesMutators(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.CreateRoom(ctx, newRoom("aa"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.UpdateRoom(ctx, "aa", func(room *models.Room) error {
				room.CurrentPlayers++
				return nil
			})
		}()
	}
	wg.Wait()

	got, _ := s.GetRoom(ctx, "aa")
	if got.CurrentPlayers != 50 {
		t.Fatalf("players = %d, want 50", got.CurrentPlayers)
	}
}

func TestListRoomsFreshnessAndFilters(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	now := time.Now().UTC()
	s.now = func() time.Time { return now }

	fresh := newRoom("aa")
	stale := newRoom("bb")
	stale.ShortCode = "STALE1"
	stale.CreatedAt = now.Add(-2 * time.Hour)
	stale.UpdatedAt = now.Add(-2 * time.Hour)
	private := newRoom("cc")
	private.ShortCode = "PRIV01"
	private.Visibility = models.VisibilityPrivate

	s.CreateRoom(ctx, fresh)
	s.CreateRoom(ctx, stale)
	s.CreateRoom(ctx, private)

	rooms, err := s.ListRooms(ctx, storage.ListFilter{
		GameVersion: "1.0.0",
		State:       models.StateOpen,
		Visibility:  models.VisibilityPublic,
	})
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != "aa" {
		t.Fatalf("rooms = %+v, want just aa", rooms)
	}

	// TouchRoom pulls a stale room back inside the horizon.
	if err := s.TouchRoom(ctx, "bb"); err != nil {
		t.Fatalf("TouchRoom: %v", err)
	}
	rooms, _ = s.ListRooms(ctx, storage.ListFilter{Visibility: models.VisibilityPublic})
	if len(rooms) != 2 {
		t.Fatalf("after touch got %d rooms, want 2", len(rooms))
	}
}

func TestDeleteRoom(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.CreateRoom(ctx, newRoom("aa"))

	if err := s.DeleteRoom(ctx, "aa"); err != nil {
		t.Fatalf("DeleteRoom: %v", err)
	}
	if err := s.DeleteRoom(ctx, "aa"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete = %v, want ErrNotFound", err)
	}
}
