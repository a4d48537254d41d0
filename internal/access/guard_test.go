package access

import (
	"context"
	"errors"
	"testing"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/store/storetest"

	"gorm.io/gorm"
)

type fakeLookup struct {
	tasks       map[uint]*model.Task
	categories  map[uint]*model.Category
	attachments map[uint]*model.Attachment
	shares      map[[2]uint]bool
	err         error
}

func (f *fakeLookup) FindTask(ctx context.Context, id uint) (*model.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	if t, ok := f.tasks[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLookup) FindCategory(ctx context.Context, id uint) (*model.Category, error) {
	if c, ok := f.categories[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLookup) FindAttachmentWithTask(ctx context.Context, id uint) (*model.Attachment, error) {
	if a, ok := f.attachments[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLookup) ShareExists(ctx context.Context, taskID, userID uint) (bool, error) {
	return f.shares[[2]uint{taskID, userID}], nil
}

func newFake() *fakeLookup {
	task := &model.Task{ID: 10, CreatorID: 1, Title: "mine"}
	return &fakeLookup{
		tasks:       map[uint]*model.Task{10: task},
		categories:  map[uint]*model.Category{20: {ID: 20, UserID: 1, Name: "Work"}},
		attachments: map[uint]*model.Attachment{30: {ID: 30, TaskID: 10, Task: task}},
		shares:      map[[2]uint]bool{{10, 3}: true},
	}
}

func TestAuthorizeTask(t *testing.T) {
	g := NewGuard(newFake())
	ctx := context.Background()

	if _, err := g.AuthorizeTask(ctx, 1, 10); err != nil {
		t.Fatalf("owner should pass: %v", err)
	}
	_, errOther := g.AuthorizeTask(ctx, 2, 10)
	_, errMissing := g.AuthorizeTask(ctx, 1, 99)
	if !errors.Is(errOther, apperr.ErrNotFound) || !errors.Is(errMissing, apperr.ErrNotFound) {
		t.Fatalf("expected NotFound for both, got %v / %v", errOther, errMissing)
	}
	if errOther.Error() != errMissing.Error() {
		t.Fatalf("not-owned and missing must be indistinguishable: %q vs %q", errOther, errMissing)
	}
}

func TestAuthorizeTask_LookupFailureIsInternal(t *testing.T) {
	f := newFake()
	f.err = errors.New("db down")
	g := NewGuard(f)

	_, err := g.AuthorizeTask(context.Background(), 1, 10)
	if apperr.KindOf(err) != apperr.KindInternal {
		t.Fatalf("expected internal, got %v", err)
	}
}

func TestAuthorizeAttachment(t *testing.T) {
	g := NewGuard(newFake())
	ctx := context.Background()

	if _, err := g.AuthorizeAttachment(ctx, 1, 30); err != nil {
		t.Fatalf("owner should pass: %v", err)
	}
	if _, err := g.AuthorizeAttachment(ctx, 2, 30); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if _, err := g.AuthorizeAttachment(ctx, 1, 31); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestAuthorizeCategory(t *testing.T) {
	g := NewGuard(newFake())
	ctx := context.Background()

	if _, err := g.AuthorizeCategory(ctx, 1, 20); err != nil {
		t.Fatalf("owner should pass: %v", err)
	}
	if _, err := g.AuthorizeCategory(ctx, 2, 20); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestAuthorizeShareCreation(t *testing.T) {
	f := newFake()
	g := NewGuard(f)
	ctx := context.Background()
	task := f.tasks[10]

	if err := g.AuthorizeShareCreation(ctx, 1, task, &model.User{ID: 1}); !errors.Is(err, apperr.ErrInvalidOperation) {
		t.Fatalf("expected InvalidOperation for self share, got %v", err)
	}
	if err := g.AuthorizeShareCreation(ctx, 1, task, &model.User{ID: 3}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected Conflict for existing grant, got %v", err)
	}
	if err := g.AuthorizeShareCreation(ctx, 1, task, &model.User{ID: 4}); err != nil {
		t.Fatalf("expected new grant to be allowed, got %v", err)
	}
}

func TestGuard_WithStore(t *testing.T) {
	s := storetest.Open(t)
	g := NewGuard(StoreLookup{Store: s})
	ctx := context.Background()

	alice := storetest.MustUser(t, s, "alice@x.com", "")
	bob := storetest.MustUser(t, s, "bob@x.com", "")
	task := storetest.MustTask(t, s, alice.ID, "Buy milk")

	if _, err := g.AuthorizeTask(ctx, alice.ID, task.ID); err != nil {
		t.Fatalf("owner should pass: %v", err)
	}
	if _, err := g.AuthorizeTask(ctx, bob.ID, task.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected NotFound for other user, got %v", err)
	}

	att := &model.Attachment{TaskID: task.ID, FileName: "f.txt", URL: "/uploads/f.txt"}
	if err := s.Attachments.Create(ctx, att); err != nil {
		t.Fatalf("create attachment: %v", err)
	}
	if _, err := g.AuthorizeAttachment(ctx, bob.ID, att.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected NotFound for other user's attachment, got %v", err)
	}
	if _, err := g.AuthorizeAttachment(ctx, alice.ID, att.ID); err != nil {
		t.Fatalf("owner attachment should pass: %v", err)
	}
}
