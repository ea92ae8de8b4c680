package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"

	"cattube/internal/models"
)

// Key layout:
//
//	video/<id>              JSON video
//	video_assembly/<asm>    video id
//	user/<id>               JSON user
//	user_name/<username>    user id
const (
	videoPrefix         = "video/"
	videoAssemblyPrefix = "video_assembly/"
	userPrefix          = "user/"
	userNamePrefix      = "user_name/"
)

// PebbleStore implements VideoStore and UserStore on an embedded pebble DB.
// Writes that check a uniqueness index hold mu so check-then-set is atomic.
type PebbleStore struct {
	db  *pebble.DB
	mu  sync.Mutex
	now func() time.Time
}

func NewPebbleStore(db *pebble.DB) *PebbleStore {
	return &PebbleStore{db: db, now: time.Now}
}

// Videos returns the store as a VideoStore.
func (s *PebbleStore) Videos() VideoStore { return pebbleVideos{s} }

// Users returns the store as a UserStore.
func (s *PebbleStore) Users() UserStore { return pebbleUsers{s} }

func (s *PebbleStore) get(key string, out interface{}) error {
	data, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("pebble get %s: %w", key, err)
	}
	defer closer.Close()
	return json.Unmarshal(data, out)
}

func (s *PebbleStore) exists(key string) (bool, error) {
	_, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	return true, nil
}

func (s *PebbleStore) lookupID(indexKey string) (uuid.UUID, error) {
	data, closer, err := s.db.Get([]byte(indexKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("pebble get %s: %w", indexKey, err)
	}
	defer closer.Close()
	return uuid.ParseBytes(data)
}

// scan calls fn with the value of every key under prefix.
func (s *PebbleStore) scan(prefix string, fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixEnd([]byte(prefix)),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func prefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

type pebbleVideos struct{ s *PebbleStore }

func (p pebbleVideos) Create(ctx context.Context, title, assemblyID string, ownerID uuid.UUID) (*models.Video, error) {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	indexKey := videoAssemblyPrefix + assemblyID
	taken, err := s.exists(indexKey)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("assembly %s: %w", assemblyID, ErrDuplicate)
	}

	v := &models.Video{
		ID:         uuid.New(),
		Title:      title,
		AssemblyID: assemblyID,
		UploadedAt: s.now().UTC(),
		OwnerID:    ownerID,
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	b := s.db.NewBatch()
	defer b.Close()
	b.Set([]byte(videoPrefix+v.ID.String()), data, nil)
	b.Set([]byte(indexKey), []byte(v.ID.String()), nil)
	if err := b.Commit(pebble.Sync); err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}
	return v, nil
}

func (p pebbleVideos) GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	v := &models.Video{}
	if err := p.s.get(videoPrefix+id.String(), v); err != nil {
		return nil, err
	}
	return v, nil
}

func (p pebbleVideos) GetByAssemblyID(ctx context.Context, assemblyID string) (*models.Video, error) {
	id, err := p.s.lookupID(videoAssemblyPrefix + assemblyID)
	if err != nil {
		return nil, err
	}
	return p.GetByID(ctx, id)
}

func (p pebbleVideos) Update(ctx context.Context, v *models.Video) error {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	current := &models.Video{}
	if err := s.get(videoPrefix+v.ID.String(), current); err != nil {
		return err
	}

	current.Title = v.Title
	current.TranscodedURL = v.TranscodedURL
	current.ThumbnailURL = v.ThumbnailURL

	data, err := json.Marshal(current)
	if err != nil {
		return err
	}
	if err := s.db.Set([]byte(videoPrefix+current.ID.String()), data, pebble.Sync); err != nil {
		return fmt.Errorf("update video %s: %w", v.ID, err)
	}
	return nil
}

func (p pebbleVideos) List(ctx context.Context) ([]*models.Video, error) {
	videos := make([]*models.Video, 0)
	err := p.s.scan(videoPrefix, func(_, value []byte) error {
		v := &models.Video{}
		if err := json.Unmarshal(value, v); err != nil {
			return err
		}
		videos = append(videos, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].UploadedAt.After(videos[j].UploadedAt)
	})
	return videos, nil
}

func (p pebbleVideos) DeleteAll(ctx context.Context) (int, error) {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()

	n := 0
	err := s.scan(videoPrefix, func(key, value []byte) error {
		v := &models.Video{}
		if err := json.Unmarshal(value, v); err != nil {
			return err
		}
		b.Delete(bytes.Clone(key), nil)
		b.Delete([]byte(videoAssemblyPrefix+v.AssemblyID), nil)
		n++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete videos: %w", err)
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("delete videos: %w", err)
	}
	return n, nil
}

type pebbleUsers struct{ s *PebbleStore }

func (p pebbleUsers) Create(ctx context.Context, username, passwordHash string) (*models.User, error) {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	indexKey := userNamePrefix + username
	taken, err := s.exists(indexKey)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("username %s: %w", username, ErrDuplicate)
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	// PasswordHash is json:"-" on the model, so store a dedicated record.
	data, err := json.Marshal(storedUser{user.ID, user.Username, user.PasswordHash, user.CreatedAt})
	if err != nil {
		return nil, err
	}

	b := s.db.NewBatch()
	defer b.Close()
	b.Set([]byte(userPrefix+user.ID.String()), data, nil)
	b.Set([]byte(indexKey), []byte(user.ID.String()), nil)
	if err := b.Commit(pebble.Sync); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (p pebbleUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var su storedUser
	if err := p.s.get(userPrefix+id.String(), &su); err != nil {
		return nil, err
	}
	return &models.User{ID: su.ID, Username: su.Username, PasswordHash: su.PasswordHash, CreatedAt: su.CreatedAt}, nil
}

func (p pebbleUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	id, err := p.s.lookupID(userNamePrefix + username)
	if err != nil {
		return nil, err
	}
	return p.GetByID(ctx, id)
}

type storedUser struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}
