//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/database"
	"github.com/gdugdh24/soundmatch-backend/internal/repository"
	"github.com/gdugdh24/soundmatch-backend/internal/testinfra"
)

// Run with:
//
//	go test -tags integration ./internal/repository/postgres/...

func TestPostgresRepositories_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pg, err := testinfra.NewPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, pg.Container)

	db, err := database.NewPostgresDB(ctx, pg.Config)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "001_init.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	t.Run("concurrent sends with one client id store one row", func(t *testing.T) {
		reset(t, db, 1, 2)
		repo := NewMessageRepository(db)

		const senders = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			ids     = map[int64]bool{}
			created int
			errs    []error
		)
		for i := 0; i < senders; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				cid := "retry-1"
				msg := &domain.Message{
					RoomID: "1_2", SenderID: 1, Content: "hello",
					Status: domain.MessageStatusSent, ClientID: &cid, CreatedAt: time.Now(),
				}
				ok, err := repo.CreateIfAbsent(ctx, msg)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
					return
				}
				ids[msg.ID] = true
				if ok {
					created++
				}
			}()
		}
		wg.Wait()

		if len(errs) > 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		if created != 1 || len(ids) != 1 {
			t.Fatalf("unexpected dedup result: created %d, distinct ids %d", created, len(ids))
		}
		if n := count(t, db, `SELECT COUNT(*) FROM messages WHERE sender_id = 1 AND client_id = 'retry-1'`); n != 1 {
			t.Fatalf("unexpected rows: got %d want 1", n)
		}
	})

	t.Run("status never regresses", func(t *testing.T) {
		reset(t, db, 1, 2)
		repo := NewMessageRepository(db)
		msg := insertMessage(t, repo, "1_2", 1, "hi")
		now := time.Now()

		read, err := repo.UpdateStatus(ctx, repository.StatusUpdate{RoomID: "1_2", RecipientID: 2, To: domain.MessageStatusRead, At: now})
		if err != nil {
			t.Fatalf("mark read: %v", err)
		}
		if len(read) != 1 || read[0] != msg.ID {
			t.Fatalf("unexpected read ids: %v", read)
		}

		delivered, err := repo.UpdateStatus(ctx, repository.StatusUpdate{
			RoomID: "1_2", RecipientID: 2, IDs: []int64{msg.ID}, To: domain.MessageStatusDelivered, At: now.Add(time.Second),
		})
		if err != nil {
			t.Fatalf("mark delivered: %v", err)
		}
		if len(delivered) != 0 {
			t.Fatalf("read message moved back to delivered: %v", delivered)
		}

		var stored domain.Message
		if err := db.GetContext(ctx, &stored, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, msg.ID); err != nil {
			t.Fatalf("load: %v", err)
		}
		if stored.Status != domain.MessageStatusRead || stored.ReadAt == nil || stored.DeliveredAt == nil {
			t.Fatalf("unexpected stored message: %+v", stored)
		}

		// the sender's own messages are never touched
		own, err := repo.UpdateStatus(ctx, repository.StatusUpdate{RoomID: "1_2", RecipientID: 1, To: domain.MessageStatusRead, At: now})
		if err != nil || len(own) != 0 {
			t.Fatalf("unexpected update of own messages: %v %v", own, err)
		}
	})

	t.Run("latest message per room", func(t *testing.T) {
		reset(t, db, 1, 2, 3)
		repo := NewMessageRepository(db)
		insertMessage(t, repo, "1_2", 1, "first")
		last12 := insertMessage(t, repo, "1_2", 2, "second")
		last13 := insertMessage(t, repo, "1_3", 3, "only")
		insertMessage(t, repo, "2_3", 2, "other room")

		latest, err := repo.LatestByRooms(ctx, []string{"1_2", "1_3", "1_9"})
		if err != nil {
			t.Fatalf("latest: %v", err)
		}
		got := map[string]int64{}
		for _, m := range latest {
			got[m.RoomID] = m.ID
		}
		want := map[string]int64{"1_2": last12.ID, "1_3": last13.ID}
		if len(got) != len(want) || got["1_2"] != want["1_2"] || got["1_3"] != want["1_3"] {
			t.Fatalf("unexpected latest: got %v want %v", got, want)
		}

		unread, err := repo.CountUnreadRooms(ctx, []string{"1_2", "1_3"}, 1)
		if err != nil || unread != 2 {
			t.Fatalf("unexpected unread rooms: got %d (%v) want 2", unread, err)
		}
	})

	t.Run("page backwards through a room", func(t *testing.T) {
		reset(t, db, 1, 2)
		repo := NewMessageRepository(db)
		var ids []int64
		for i := 0; i < 5; i++ {
			ids = append(ids, insertMessage(t, repo, "1_2", 1, fmt.Sprintf("m%d", i)).ID)
		}

		page, err := repo.ListByRoom(ctx, "1_2", &ids[3], 2)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(page) != 2 || page[0].ID != ids[2] || page[1].ID != ids[1] {
			t.Fatalf("unexpected page: %+v", page)
		}
	})

	t.Run("orphaned match sides", func(t *testing.T) {
		reset(t, db, 1, 2, 3)
		repo := NewMatchRepository(db)
		complete := uuid.NewString()
		orphan := uuid.NewString()
		createSide(t, repo, complete, 1, 2)
		createSide(t, repo, complete, 2, 1)
		createSide(t, repo, orphan, 1, 3)

		orphans, err := repo.ListOrphans(ctx, 10)
		if err != nil {
			t.Fatalf("orphans: %v", err)
		}
		if len(orphans) != 1 || orphans[0].ID != orphan || orphans[0].ProfileID != 1 {
			t.Fatalf("unexpected orphans: %+v", orphans)
		}

		if ok, err := repo.Create(ctx, &domain.Match{ID: orphan, ProfileID: 1, MatchedProfileID: 3, Status: domain.MatchStatusActive, CreatedAt: time.Now()}); err != nil || ok {
			t.Fatalf("duplicate side must report false: %v %v", ok, err)
		}

		n, err := repo.DeleteSide(ctx, orphan, 1)
		if err != nil || n != 1 {
			t.Fatalf("delete side: %d %v", n, err)
		}
		if n, _ := repo.DeleteSide(ctx, orphan, 1); n != 0 {
			t.Fatalf("second delete must affect nothing: %d", n)
		}
	})

	t.Run("decisions are recorded once", func(t *testing.T) {
		reset(t, db, 1, 2)
		repo := NewDecisionRepository(db)

		first, err := repo.AddLike(ctx, 1, 2)
		if err != nil || !first {
			t.Fatalf("first like: %v %v", first, err)
		}
		again, err := repo.AddLike(ctx, 1, 2)
		if err != nil || again {
			t.Fatalf("repeat like: %v %v", again, err)
		}
		if ok, _ := repo.HasLiked(ctx, 1, 2); !ok {
			t.Fatal("like must be visible")
		}
		if ok, _ := repo.HasLiked(ctx, 2, 1); ok {
			t.Fatal("likes are directional")
		}
		if _, err := repo.AddDislike(ctx, 2, 1); err != nil {
			t.Fatalf("dislike: %v", err)
		}
		if ok, _ := repo.HasDisliked(ctx, 2, 1); !ok {
			t.Fatal("dislike must be visible")
		}
	})

	t.Run("lock pair serializes writers", func(t *testing.T) {
		reset(t, db, 1, 2)
		profiles := NewProfileRepository(db)

		if err := profiles.LockPair(ctx, 1, 9); !errors.Is(err, domain.ErrProfileNotFound) {
			t.Fatalf("unexpected error: got %v want %v", err, domain.ErrProfileNotFound)
		}

		holder, err := db.BeginTxx(ctx, nil)
		if err != nil {
			t.Fatalf("begin: %v", err)
		}
		if err := profiles.LockPair(context.WithValue(ctx, txKey{}, holder), 1, 2); err != nil {
			t.Fatalf("lock: %v", err)
		}

		blocked, cancelBlocked := context.WithTimeout(ctx, 300*time.Millisecond)
		defer cancelBlocked()
		err = NewTransactor(db).WithinTx(blocked, func(ctx context.Context) error {
			return profiles.LockPair(ctx, 2, 1)
		})
		if err == nil {
			t.Fatal("second locker must wait for the first")
		}

		if err := holder.Rollback(); err != nil {
			t.Fatalf("rollback: %v", err)
		}
		err = NewTransactor(db).WithinTx(ctx, func(ctx context.Context) error {
			return profiles.LockPair(ctx, 2, 1)
		})
		if err != nil {
			t.Fatalf("lock after release: %v", err)
		}
	})

	t.Run("feed candidates", func(t *testing.T) {
		reset(t, db)
		seed := []struct {
			id     int64
			age    int
			gender string
			status domain.ProfileStatus
		}{
			{1, 30, "male", domain.ProfileStatusCompleted},
			{2, 25, "Female", domain.ProfileStatusCompleted},
			{3, 40, "female", domain.ProfileStatusCompleted},
			{4, 27, "female", domain.ProfileStatusPhotosUploaded},
			{5, 28, "female", domain.ProfileStatusCompleted},
			{6, 29, "male", domain.ProfileStatusCompleted},
			{7, 26, "female", domain.ProfileStatusCompleted},
		}
		for _, p := range seed {
			insertProfile(t, db, p.id, p.age, p.gender, p.status)
		}
		profiles := NewProfileRepository(db)
		q := repository.FeedQuery{
			ExcludeIDs: []int64{1, 7},
			Genders:    []string{"FEMALE"},
			MinAge:     20,
			MaxAge:     35,
			Status:     domain.ProfileStatusCompleted,
			Limit:      10,
		}

		got, err := profiles.ListFeedCandidates(ctx, q)
		if err != nil {
			t.Fatalf("feed: %v", err)
		}
		if ids := profileIDs(got); !equalIDs(ids, []int64{5, 2}) {
			t.Fatalf("unexpected candidates: got %v want [5 2]", ids)
		}

		cursor := int64(5)
		q.Cursor = &cursor
		got, err = profiles.ListFeedCandidates(ctx, q)
		if err != nil {
			t.Fatalf("feed: %v", err)
		}
		if ids := profileIDs(got); !equalIDs(ids, []int64{2}) {
			t.Fatalf("unexpected page after cursor: got %v want [2]", ids)
		}
	})
}

func reset(t *testing.T, db *sqlx.DB, profileIDs ...int64) {
	t.Helper()
	if _, err := db.Exec(`TRUNCATE messages, profile_matches, profile_likes, profile_dislikes, profiles RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	for _, id := range profileIDs {
		insertProfile(t, db, id, 30, "female", domain.ProfileStatusCompleted)
	}
}

func insertProfile(t *testing.T, db *sqlx.DB, id int64, age int, gender string, status domain.ProfileStatus) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO profiles (id, name, age, gender, status) VALUES ($1, $2, $3, $4, $5)`,
		id, fmt.Sprintf("user-%d", id), age, gender, string(status))
	if err != nil {
		t.Fatalf("insert profile %d: %v", id, err)
	}
}

func insertMessage(t *testing.T, repo repository.MessageRepository, roomID string, senderID int64, content string) *domain.Message {
	t.Helper()
	msg := &domain.Message{RoomID: roomID, SenderID: senderID, Content: content, Status: domain.MessageStatusSent, CreatedAt: time.Now()}
	if _, err := repo.CreateIfAbsent(context.Background(), msg); err != nil {
		t.Fatalf("insert message: %v", err)
	}
	return msg
}

func createSide(t *testing.T, repo repository.MatchRepository, matchID string, profileID, matchedID int64) {
	t.Helper()
	side := &domain.Match{ID: matchID, ProfileID: profileID, MatchedProfileID: matchedID, Status: domain.MatchStatusActive, CreatedAt: time.Now()}
	if ok, err := repo.Create(context.Background(), side); err != nil || !ok {
		t.Fatalf("create side %d: %v %v", profileID, ok, err)
	}
}

func count(t *testing.T, db *sqlx.DB, query string) int {
	t.Helper()
	var n int
	if err := db.Get(&n, query); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func profileIDs(profiles []*domain.Profile) []int64 {
	out := make([]int64, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.ID)
	}
	return out
}

func equalIDs(got, want []int64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
