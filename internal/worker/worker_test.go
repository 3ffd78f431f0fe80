package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/mata-s/novel-day/internal/models"
	"github.com/mata-s/novel-day/internal/narrative"
)

type fakeStore struct {
	entries   []models.SourceEntry
	listErr   error
	existsErr error
	count     int
	countErr  error
	insertErr error
	inserted  []models.ChapterRow
}

func (f *fakeStore) ListDailyEntries(context.Context, string, models.Period) ([]models.SourceEntry, error) {
	return f.entries, f.listErr
}

func (f *fakeStore) ChapterExists(_ context.Context, userID, chapterType, periodKey string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, row := range f.inserted {
		if row.UserID == userID && row.ChapterType == chapterType && row.PeriodKey == periodKey {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CountChapters(context.Context, string, string) (int, error) {
	return f.count, f.countErr
}

func (f *fakeStore) InsertChapter(_ context.Context, row models.ChapterRow) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, row)
	return nil
}

type fakePersonas struct {
	persona models.Persona
	err     error
}

func (f *fakePersonas) Persona(context.Context, string) (models.Persona, error) {
	return f.persona, f.err
}

type fakeGen struct {
	chapter    narrative.Chapter
	err        error
	calls      int
	gotPersona models.Persona
	gotKind    models.PeriodKind
}

func (f *fakeGen) GenerateChapter(_ context.Context, _ []models.SourceEntry, persona models.Persona, kind models.PeriodKind) (narrative.Chapter, error) {
	f.calls++
	f.gotPersona = persona
	f.gotKind = kind
	return f.chapter, f.err
}

func weeklyPayload() models.TaskPayload {
	return models.TaskPayload{
		UserID: "user-1",
		Period: models.Period{
			Kind:        models.PeriodWeekly,
			StartKey:    "2024-05-06",
			EndKey:      "2024-05-12",
			Key:         "2024-05-06",
			WeekOfMonth: 2,
		},
	}
}

func monthlyPayload() models.TaskPayload {
	return models.TaskPayload{
		UserID: "user-1",
		Period: models.Period{
			Kind:     models.PeriodMonthly,
			StartKey: "2024-05-01",
			EndKey:   "2024-06-01",
			Key:      "2024-05-01",
			Label:    "2024年5月",
		},
	}
}

func someEntries() []models.SourceEntry {
	return []models.SourceEntry{
		{UserID: "user-1", DateKey: "2024-05-06", Memo: "晴れ"},
		{UserID: "user-1", DateKey: "2024-05-08", Memo: "雨"},
	}
}

func TestRunInvalidPayload(t *testing.T) {
	w := New(&fakeStore{}, &fakePersonas{}, &fakeGen{})

	tests := []models.TaskPayload{
		{},
		{UserID: "user-1"},
		{UserID: "user-1", Period: models.Period{Kind: models.PeriodDaily, StartKey: "a", EndKey: "b", Key: "a"}},
		{UserID: "user-1", Period: models.Period{Kind: models.PeriodWeekly, StartKey: "a", EndKey: "b", Key: "a"}},
	}

	for i, payload := range tests {
		if _, err := w.Run(context.Background(), payload); !errors.Is(err, models.ErrInvalidPayload) {
			t.Errorf("case %d: err = %v, want ErrInvalidPayload", i, err)
		}
	}
}

func TestRunSkipsWithoutDailyEntries(t *testing.T) {
	gen := &fakeGen{}
	w := New(&fakeStore{}, &fakePersonas{}, gen)

	result, err := w.Run(context.Background(), weeklyPayload())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Status != StatusSkippedNoDaily {
		t.Errorf("Status = %q", result.Status)
	}
	if gen.calls != 0 {
		t.Error("generator must not run for an empty window")
	}
}

func TestRunWeeklyStoresChapter(t *testing.T) {
	store := &fakeStore{entries: someEntries(), count: 3}
	gen := &fakeGen{chapter: narrative.Chapter{Title: "ignored", Body: "week body"}}
	w := New(store, &fakePersonas{persona: models.Persona{FirstPerson: "私"}}, gen)

	result, err := w.Run(context.Background(), weeklyPayload())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusOK {
		t.Fatalf("Status = %q", result.Status)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d rows", len(store.inserted))
	}
	row := store.inserted[0]

	if row.Title != "第2週 まとめ章 第4巻" {
		t.Errorf("Title = %q", row.Title)
	}
	if row.Memo != "第2週 まとめ章" {
		t.Errorf("Memo = %q", row.Memo)
	}
	if row.Style != models.ChapterStyleWeekly {
		t.Errorf("Style = %q", row.Style)
	}
	if row.Volume != 4 {
		t.Errorf("Volume = %d", row.Volume)
	}
	if row.ChapterType != models.ChapterTypeWeekly {
		t.Errorf("ChapterType = %q", row.ChapterType)
	}
	if row.PeriodKey != "2024-05-06" {
		t.Errorf("PeriodKey = %q", row.PeriodKey)
	}
	if row.Body != "week body" {
		t.Errorf("Body = %q", row.Body)
	}
	if gen.gotPersona.FirstPerson != "私" {
		t.Errorf("persona = %+v", gen.gotPersona)
	}
}

func TestRunMonthlyStoresChapter(t *testing.T) {
	store := &fakeStore{entries: someEntries()}
	gen := &fakeGen{chapter: narrative.Chapter{Title: "五月の物語", Body: "month body"}}
	w := New(store, &fakePersonas{persona: models.DefaultPersona()}, gen)

	result, err := w.Run(context.Background(), monthlyPayload())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusOK {
		t.Fatalf("Status = %q", result.Status)
	}

	row := store.inserted[0]
	if row.Title != "五月の物語" {
		t.Errorf("Title = %q", row.Title)
	}
	if row.Memo != "2024年5月の短編" {
		t.Errorf("Memo = %q", row.Memo)
	}
	if row.Style != models.ChapterStyleMonthly {
		t.Errorf("Style = %q", row.Style)
	}
	if row.Volume != 0 {
		t.Errorf("Volume = %d", row.Volume)
	}
	if gen.gotKind != models.PeriodMonthly {
		t.Errorf("kind = %q", gen.gotKind)
	}
}

func TestRunMonthlyWithoutLabel(t *testing.T) {
	store := &fakeStore{entries: someEntries()}
	w := New(store, &fakePersonas{}, &fakeGen{chapter: narrative.Chapter{Title: "t", Body: "b"}})

	payload := monthlyPayload()
	payload.Period.Label = ""

	if _, err := w.Run(context.Background(), payload); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if memo := store.inserted[0].Memo; memo != "今月の短編" {
		t.Errorf("Memo = %q", memo)
	}
}

func TestRunSecondDeliverySkips(t *testing.T) {
	store := &fakeStore{entries: someEntries()}
	gen := &fakeGen{chapter: narrative.Chapter{Title: "t", Body: "b"}}
	w := New(store, &fakePersonas{}, gen)

	if _, err := w.Run(context.Background(), weeklyPayload()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	result, err := w.Run(context.Background(), weeklyPayload())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if result.Status != StatusSkippedExists {
		t.Errorf("Status = %q", result.Status)
	}
	if gen.calls != 1 {
		t.Errorf("generator ran %d times, want 1", gen.calls)
	}
	if len(store.inserted) != 1 {
		t.Errorf("inserted %d rows, want 1", len(store.inserted))
	}
}

func TestRunPersonaFailureFallsBack(t *testing.T) {
	store := &fakeStore{entries: someEntries()}
	gen := &fakeGen{chapter: narrative.Chapter{Title: "t", Body: "b"}}
	w := New(store, &fakePersonas{err: errors.New("profiles down")}, gen)

	result, err := w.Run(context.Background(), weeklyPayload())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Status != StatusOK {
		t.Errorf("Status = %q", result.Status)
	}
	if gen.gotPersona.FirstPerson != models.DefaultFirstPerson {
		t.Errorf("persona = %+v, want default", gen.gotPersona)
	}
}

func TestRunStageErrorTags(t *testing.T) {
	upstream := errors.New("mongo down")

	tests := []struct {
		name    string
		store   *fakeStore
		gen     *fakeGen
		payload models.TaskPayload
		wantTag string
	}{
		{
			name:    "weekly fetch",
			store:   &fakeStore{listErr: upstream},
			gen:     &fakeGen{},
			payload: weeklyPayload(),
			wantTag: "daily fetch error",
		},
		{
			name:    "monthly fetch",
			store:   &fakeStore{listErr: upstream},
			gen:     &fakeGen{},
			payload: monthlyPayload(),
			wantTag: "monthly daily fetch error",
		},
		{
			name:    "weekly exists",
			store:   &fakeStore{entries: someEntries(), existsErr: upstream},
			gen:     &fakeGen{},
			payload: weeklyPayload(),
			wantTag: "weekly exists check error",
		},
		{
			name:    "weekly count",
			store:   &fakeStore{entries: someEntries(), countErr: upstream},
			gen:     &fakeGen{},
			payload: weeklyPayload(),
			wantTag: "weekly list error",
		},
		{
			name:    "monthly generate",
			store:   &fakeStore{entries: someEntries()},
			gen:     &fakeGen{err: upstream},
			payload: monthlyPayload(),
			wantTag: "monthly generate error",
		},
		{
			name:    "weekly insert",
			store:   &fakeStore{entries: someEntries(), insertErr: upstream},
			gen:     &fakeGen{chapter: narrative.Chapter{Title: "t", Body: "b"}},
			payload: weeklyPayload(),
			wantTag: "insert weekly error",
		},
		{
			name:    "monthly insert",
			store:   &fakeStore{entries: someEntries(), insertErr: upstream},
			gen:     &fakeGen{chapter: narrative.Chapter{Title: "t", Body: "b"}},
			payload: monthlyPayload(),
			wantTag: "insert monthly error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(tt.store, &fakePersonas{}, tt.gen)

			_, err := w.Run(context.Background(), tt.payload)

			var stageErr *StageError
			if !errors.As(err, &stageErr) {
				t.Fatalf("err = %v, want StageError", err)
			}
			if stageErr.Tag != tt.wantTag {
				t.Errorf("Tag = %q, want %q", stageErr.Tag, tt.wantTag)
			}
			if !errors.Is(err, upstream) {
				t.Error("stage error must wrap the upstream error")
			}
		})
	}
}
