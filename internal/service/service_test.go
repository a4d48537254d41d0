package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"taskhub/internal/access"
	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/pkg/filestore"
	"taskhub/internal/pkg/notify"
	"taskhub/internal/pkg/queue"
	"taskhub/internal/service"
	"taskhub/internal/store"
	"taskhub/internal/store/storetest"
)

type recordingRemover struct {
	mu      sync.Mutex
	removed []string
}

func (r *recordingRemover) RemoveQuietly(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, url)
}

func (r *recordingRemover) urls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.removed...)
}

// syncRunner 同步执行任务，便于断言。
type syncRunner struct {
	jobs int
}

func (r *syncRunner) Submit(ctx context.Context, job queue.Job) {
	r.jobs++
	_ = job(ctx)
}

type recordingNotifier struct {
	notices []notify.ShareNotice
	err     error
}

func (n *recordingNotifier) NotifyShare(ctx context.Context, notice notify.ShareNotice) error {
	n.notices = append(n.notices, notice)
	return n.err
}

type memDeduper struct {
	seen map[string]bool
}

func (d *memDeduper) IsDuplicate(ctx context.Context, key string) (bool, error) {
	if d.seen[key] {
		return true, nil
	}
	d.seen[key] = true
	return false, nil
}

func (d *memDeduper) Delete(ctx context.Context, key string) error {
	delete(d.seen, key)
	return nil
}

type fixture struct {
	store      *store.Store
	tasks      *service.TaskService
	categories *service.CategoryService
	attach     *service.AttachmentService
	sharing    *service.SharingService
	accounts   *service.AccountService
	remover    *recordingRemover
	runner     *syncRunner
	notifier   *recordingNotifier
	dedup      *memDeduper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := storetest.Open(t)
	guard := access.NewGuard(access.StoreLookup{Store: s})
	f := &fixture{
		store:    s,
		remover:  &recordingRemover{},
		runner:   &syncRunner{},
		notifier: &recordingNotifier{},
		dedup:    &memDeduper{seen: map[string]bool{}},
	}
	f.tasks = service.NewTaskService(s, guard, f.remover, f.runner, nil)
	f.categories = service.NewCategoryService(s, guard)
	f.attach = service.NewAttachmentService(s, guard, f.remover, f.runner, nil)
	f.sharing = service.NewSharingService(s, guard, f.runner, f.notifier, f.dedup, nil)
	f.accounts = service.NewAccountService(s)
	return f
}

func assertKind(t *testing.T, err error, want apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := apperr.KindOf(err); got != want {
		t.Fatalf("expected %s, got %s (%v)", want, got, err)
	}
}

func strPtr(s string) *string { return &s }

func TestTaskCreate_DefaultsAndVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := storetest.MustUser(t, f.store, "alice@example.com", "Alice")
	bob := storetest.MustUser(t, f.store, "bob@example.com", "")

	task, err := f.tasks.Create(ctx, alice.ID, service.TaskInput{Title: "Write report"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Priority != model.DefaultPriority {
		t.Fatalf("expected default priority, got %q", task.Priority)
	}
	if task.DueDate != nil {
		t.Fatalf("expected nil due date")
	}

	if _, err := f.tasks.Get(ctx, alice.ID, task.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	_, err = f.tasks.Get(ctx, bob.ID, task.ID)
	assertKind(t, err, apperr.KindNotFound)

	_, missingErr := f.tasks.Get(ctx, bob.ID, 9999)
	if apperr.MessageOf(err) != apperr.MessageOf(missingErr) {
		t.Fatalf("not-owned and missing should be indistinguishable: %q vs %q",
			apperr.MessageOf(err), apperr.MessageOf(missingErr))
	}
}

func TestTaskCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := storetest.MustUser(t, f.store, "alice@example.com", "")
	bob := storetest.MustUser(t, f.store, "bob@example.com", "")

	_, err := f.tasks.Create(ctx, alice.ID, service.TaskInput{Title: "  "})
	assertKind(t, err, apperr.KindInvalidInput)

	_, err = f.tasks.Create(ctx, alice.ID, service.TaskInput{Title: "x", DueDate: "not a date"})
	assertKind(t, err, apperr.KindInvalidInput)

	bobCategory, err := f.categories.Create(ctx, bob.ID, "Bob's")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	_, err = f.tasks.Create(ctx, alice.ID, service.TaskInput{Title: "x", CategoryID: &bobCategory.ID})
	assertKind(t, err, apperr.KindNotFound)

	task, err := f.tasks.Create(ctx, alice.ID, service.TaskInput{Title: "dated", DueDate: "31-12-2025 18:30", Priority: "High"})
	if err != nil {
		t.Fatalf("create dated: %v", err)
	}
	if task.DueDate == nil || task.DueDate.Day() != 31 || task.DueDate.Hour() != 18 {
		t.Fatalf("unexpected due date %v", task.DueDate)
	}
	if task.Priority != "High" {
		t.Fatalf("unexpected priority %q", task.Priority)
	}
}

func TestTaskUpdate_MergesProvidedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := storetest.MustUser(t, f.store, "alice@example.com", "")
	bob := storetest.MustUser(t, f.store, "bob@example.com", "")

	category, err := f.categories.Create(ctx, alice.ID, "Work")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	task, err := f.tasks.Create(ctx, alice.ID, service.TaskInput{
		Title:       "Original",
		Description: strPtr("desc"),
		DueDate:     "01-02-2025 09:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := f.tasks.Update(ctx, alice.ID, task.ID, service.TaskPatch{
		Title:      strPtr("Renamed"),
		CategoryID: &category.ID,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Fatalf("title not updated: %q", updated.Title)
	}
	if updated.Description == nil || *updated.Description != "desc" {
		t.Fatalf("description should be untouched")
	}
	if updated.DueDate == nil {
		t.Fatalf("due date should be untouched")
	}
	if updated.CreatorID != alice.ID {
		t.Fatalf("creator changed")
	}
	if updated.Category == nil || updated.Category.ID != category.ID {
		t.Fatalf("category not attached")
	}

	cleared, err := f.tasks.Update(ctx, alice.ID, task.ID, service.TaskPatch{DueDate: strPtr(""), ClearCategory: true})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared.DueDate != nil || cleared.CategoryID != nil {
		t.Fatalf("expected due date and category to be cleared")
	}

	_, err = f.tasks.Update(ctx, bob.ID, task.ID, service.TaskPatch{Title: strPtr("hijack")})
	assertKind(t, err, apperr.KindNotFound)

	again, err := f.tasks.Get(ctx, alice.ID, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again.Title != "Renamed" {
		t.Fatalf("non-owner update leaked: %q", again.Title)
	}
}

func TestTaskDelete_RemovesAttachmentsAndShares(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := storetest.MustUser(t, f.store, "alice@example.com", "")
	bob := storetest.MustUser(t, f.store, "bob@example.com", "")

	task, err := f.tasks.Create(ctx, alice.ID, service.TaskInput{Title: "with files"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	att, err := f.attach.Create(ctx, alice.ID, task.ID, filestore.StoredFile{OriginalName: "a.txt", URL: "/uploads/a.txt"})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := f.sharing.Create(ctx, alice.ID, task.ID, bob.Email); err != nil {
		t.Fatalf("share: %v", err)
	}

	_, err = f.tasks.Delete(ctx, bob.ID, task.ID)
	assertKind(t, err, apperr.KindNotFound)

	deleted, err := f.tasks.Delete(ctx, alice.ID, task.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.ID != task.ID {
		t.Fatalf("unexpected deleted task %d", deleted.ID)
	}

	if got := f.remover.urls(); len(got) != 1 || got[0] != att.URL {
		t.Fatalf("expected stored file cleanup, got %v", got)
	}
	_, err = f.attach.Delete(ctx, alice.ID, att.ID)
	assertKind(t, err, apperr.KindNotFound)

	received, err := f.sharing.ListReceived(ctx, bob.ID)
	if err != nil {
		t.Fatalf("received: %v", err)
	}
	if len(received) != 0 {
		t.Fatalf("expected grants to be removed with the task, got %d", len(received))
	}
}

func TestCategory_OwnershipAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := storetest.MustUser(t, f.store, "alice@example.com", "")
	bob := storetest.MustUser(t, f.store, "bob@example.com", "")

	_, err := f.categories.Create(ctx, alice.ID, "")
	assertKind(t, err, apperr.KindInvalidInput)

	work, err := f.categories.Create(ctx, alice.ID, "Work")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.categories.Create(ctx, alice.ID, "Admin"); err != nil {
		t.Fatalf("create: %v", err)
	}
	task, err := f.tasks.Create(ctx, alice.ID, service.TaskInput{Title: "filed", CategoryID: &work.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	list, err := f.categories.List(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Admin" || list[1].Name != "Work" {
		t.Fatalf("expected alphabetical categories, got %+v", list)
	}
	if len(list[1].Tasks) != 1 || list[1].Tasks[0].Title != "filed" {
		t.Fatalf("expected nested task, got %+v", list[1].Tasks)
	}

	bobList, err := f.categories.List(ctx, bob.ID)
	if err != nil {
		t.Fatalf("bob list: %v", err)
	}
	if len(bobList) != 0 {
		t.Fatalf("expected bob to see no categories")
	}

	_, err = f.categories.Update(ctx, bob.ID, work.ID, "Stolen")
	assertKind(t, err, apperr.KindNotFound)
	_, err = f.categories.Delete(ctx, bob.ID, work.ID)
	assertKind(t, err, apperr.KindNotFound)

	renamed, err := f.categories.Update(ctx, alice.ID, work.ID, "Job")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if renamed.Name != "Job" {
		t.Fatalf("unexpected name %q", renamed.Name)
	}

	if _, err := f.categories.Delete(ctx, alice.ID, work.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	survivor, err := f.tasks.Get(ctx, alice.ID, task.ID)
	if err != nil {
		t.Fatalf("task should survive category delete: %v", err)
	}
	if survivor.CategoryID != nil {
		t.Fatalf("expected category to be unset")
	}
}

func TestAttachmentCreate_CleansUpOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := storetest.MustUser(t, f.store, "alice@example.com", "")
	bob := storetest.MustUser(t, f.store, "bob@example.com", "")
	task := storetest.MustTask(t, f.store, alice.ID, "mine")

	stored := filestore.StoredFile{OriginalName: "x.pdf", URL: "/uploads/x.pdf"}
	_, err := f.attach.Create(ctx, bob.ID, task.ID, stored)
	assertKind(t, err, apperr.KindNotFound)
	if got := f.remover.urls(); len(got) != 1 || got[0] != stored.URL {
		t.Fatalf("expected stored file to be removed, got %v", got)
	}

	att, err := f.attach.Create(ctx, alice.ID, task.ID, filestore.StoredFile{OriginalName: "y.pdf", URL: "/uploads/y.pdf"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if att.FileName != "y.pdf" || att.TaskID != task.ID {
		t.Fatalf("unexpected attachment %+v", att)
	}

	list, err := f.attach.List(ctx, alice.ID, task.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one attachment, got %d", len(list))
	}
	_, err = f.attach.List(ctx, bob.ID, task.ID)
	assertKind(t, err, apperr.KindNotFound)

	_, err = f.attach.Delete(ctx, bob.ID, att.ID)
	assertKind(t, err, apperr.KindNotFound)
	if _, err := f.attach.Delete(ctx, alice.ID, att.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := f.remover.urls(); len(got) != 2 || got[1] != att.URL {
		t.Fatalf("expected file removal on delete, got %v", got)
	}
}

func TestSharing_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := storetest.MustUser(t, f.store, "alice@example.com", "Alice")
	bob := storetest.MustUser(t, f.store, "bob@example.com", "Bob")
	task := storetest.MustTask(t, f.store, alice.ID, "shared")

	_, err := f.sharing.Create(ctx, alice.ID, task.ID, alice.Email)
	assertKind(t, err, apperr.KindInvalidOperation)

	_, err = f.sharing.Create(ctx, alice.ID, task.ID, "nobody@example.com")
	assertKind(t, err, apperr.KindNotFound)

	_, err = f.sharing.Create(ctx, bob.ID, task.ID, alice.Email)
	assertKind(t, err, apperr.KindNotFound)

	res, err := f.sharing.Create(ctx, alice.ID, task.ID, " BOB@example.com ")
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if res.Target.ID != bob.ID || res.Task.Title != "shared" {
		t.Fatalf("unexpected result %+v", res)
	}

	_, err = f.sharing.Create(ctx, alice.ID, task.ID, bob.Email)
	assertKind(t, err, apperr.KindConflict)

	if len(f.notifier.notices) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.notifier.notices))
	}
	notice := f.notifier.notices[0]
	if notice.ToEmail != bob.Email || notice.SharedBy != "Alice" || notice.TaskTitle != "shared" {
		t.Fatalf("unexpected notice %+v", notice)
	}

	received, err := f.sharing.ListReceived(ctx, bob.ID)
	if err != nil {
		t.Fatalf("received: %v", err)
	}
	if len(received) != 1 || received[0].Task == nil || received[0].Task.Creator == nil {
		t.Fatalf("expected task with creator, got %+v", received)
	}
	if received[0].Task.Creator.Email != alice.Email {
		t.Fatalf("unexpected sharedBy %q", received[0].Task.Creator.Email)
	}

	// 被共享者不能通过直接接口访问任务
	_, err = f.tasks.Get(ctx, bob.ID, task.ID)
	assertKind(t, err, apperr.KindNotFound)

	_, err = f.sharing.Delete(ctx, bob.ID, task.ID, bob.ID)
	assertKind(t, err, apperr.KindNotFound)

	if _, err := f.sharing.Delete(ctx, alice.ID, task.ID, bob.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	_, err = f.sharing.Delete(ctx, alice.ID, task.ID, bob.ID)
	assertKind(t, err, apperr.KindNotFound)

	if _, err := f.sharing.Create(ctx, alice.ID, task.ID, bob.Email); err != nil {
		t.Fatalf("re-share: %v", err)
	}
	if len(f.notifier.notices) != 1 {
		t.Fatalf("expected repeated notification to be suppressed, got %d", len(f.notifier.notices))
	}
}

func TestSharing_FailedNotificationReleasesDedupKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := storetest.MustUser(t, f.store, "alice@example.com", "")
	bob := storetest.MustUser(t, f.store, "bob@example.com", "")
	task := storetest.MustTask(t, f.store, alice.ID, "t")

	f.notifier.err = errors.New("smtp down")
	if _, err := f.sharing.Create(ctx, alice.ID, task.ID, bob.Email); err != nil {
		t.Fatalf("share should succeed even when notification fails: %v", err)
	}
	if len(f.dedup.seen) != 0 {
		t.Fatalf("expected dedup key to be released after failed send")
	}
}

func TestAccount_RegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.accounts.Register(ctx, service.RegisterInput{Email: "", Password: "x"})
	assertKind(t, err, apperr.KindInvalidInput)

	user, err := f.accounts.Register(ctx, service.RegisterInput{Email: " Carol@Example.com ", Password: "secret", Nome: strPtr("Carol")})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "carol@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.Password == "secret" {
		t.Fatalf("password stored in clear text")
	}

	_, err = f.accounts.Register(ctx, service.RegisterInput{Email: "carol@example.com", Password: "other"})
	assertKind(t, err, apperr.KindConflict)

	if _, err := f.accounts.Authenticate(ctx, "CAROL@example.com", "secret"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	_, err = f.accounts.Authenticate(ctx, "carol@example.com", "wrong")
	assertKind(t, err, apperr.KindUnauthenticated)
	_, err = f.accounts.Authenticate(ctx, "nobody@example.com", "secret")
	assertKind(t, err, apperr.KindUnauthenticated)

	got, err := f.accounts.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Nome == nil || *got.Nome != "Carol" {
		t.Fatalf("unexpected nome %v", got.Nome)
	}
	_, err = f.accounts.GetUser(ctx, 4242)
	assertKind(t, err, apperr.KindNotFound)

	users, err := f.accounts.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected one user, got %d", len(users))
	}
}
