package importer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"moodwave/internal/repository/db"
	"moodwave/internal/service/training"
	"moodwave/internal/testutil"
)

const legacyCSV = `timestamp,mood,sleep_time,to_sleep_time,training_time,weight,typing_speed
2024-05-02 07:10:00.123456,0.5,7.5,22.5,30,61.2,250
2024-05-01 07:00:00,abc,8,7.5,,60.9,nan
not a date,1,1,1,1,1,1
,1,1,1,1,1,1
2024-05-03,0.2,6.25,45,0,61.0,240
`

func TestParse_LegacyCoercion(t *testing.T) {
	records, dropped, err := Parse(strings.NewReader(legacyCSV))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}

	first := records[0]
	if !first.Timestamp.Equal(time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)) {
		t.Errorf("records not sorted by time: first = %v", first.Timestamp)
	}
	if first.Fields.Mood != 0 || first.Fields.TrainingTime != 0 || first.Fields.TypingSpeed != 0 {
		t.Errorf("unparsable cells should read 0: %+v", first.Fields)
	}
	if first.Fields.SleepTime != 8 || first.Fields.Weight != 60.9 {
		t.Errorf("fields = %+v", first.Fields)
	}
	if records[1].Fields.TypingAccuracy != 0 {
		t.Error("missing typing_accuracy column should read 0")
	}
	if records[1].Timestamp.Nanosecond() != 123456000 {
		t.Errorf("fractional seconds lost: %v", records[1].Timestamp)
	}
}

func TestParse_HeaderVariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr error
	}{
		{name: "empty input", input: "", want: 0},
		{name: "header only", input: "timestamp,mood\n", want: 0},
		{name: "reordered with bom", input: "\ufeffmood, Timestamp\n0.3,2024-01-01T08:00:00Z\n", want: 1},
		{name: "short row", input: "timestamp,mood,weight\n2024-01-01,0.1\n", want: 1},
		{name: "no timestamp", input: "mood,weight\n1,2\n", wantErr: ErrNoTimestampColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, _, err := Parse(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(records) != tt.want {
				t.Errorf("len(records) = %d, want %d", len(records), tt.want)
			}
		})
	}
}

type mockRetrainer struct {
	calls []string
}

func (m *mockRetrainer) Retrain(ctx context.Context, userID string) (*training.Outcome, error) {
	m.calls = append(m.calls, userID)
	return &training.Outcome{UserID: userID, Decision: db.DecisionInsufficient}, nil
}

func TestImport_AppendsThenRetrainsOnce(t *testing.T) {
	store := testutil.NewMemoryDatabase()
	retrainer := &mockRetrainer{}

	report, err := Import(context.Background(), store, retrainer, "alice", strings.NewReader(legacyCSV))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Rows != 5 || report.Imported != 3 || report.Dropped != 2 {
		t.Errorf("report = %+v", report)
	}
	if len(retrainer.calls) != 1 || retrainer.calls[0] != "alice" {
		t.Errorf("retrain calls = %v, want one for alice", retrainer.calls)
	}
	if report.Training == nil {
		t.Error("training outcome not reported")
	}

	history, _ := store.History(context.Background(), "alice")
	if len(history) != 3 || history[2].Mood != 0.2 {
		t.Errorf("history = %+v", history)
	}
}

func TestImport_StoreUnavailable(t *testing.T) {
	store := testutil.NewMemoryDatabase()
	store.Fail = errors.New("read-only file system")
	retrainer := &mockRetrainer{}

	_, err := Import(context.Background(), store, retrainer, "alice", strings.NewReader(legacyCSV))
	if !errors.Is(err, db.ErrStoreUnavailable) {
		t.Errorf("Import() error = %v, want ErrStoreUnavailable", err)
	}
	if len(retrainer.calls) != 0 {
		t.Error("retrained after a failed import")
	}
}

func TestExport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryDatabase()
	if _, err := Import(ctx, store, nil, "bob", strings.NewReader(legacyCSV)); err != nil {
		t.Fatalf("Import bob: %v", err)
	}
	if _, err := Import(ctx, store, nil, "alice", strings.NewReader("timestamp,mood\n2024-06-01T00:00:00Z,0.75\n")); err != nil {
		t.Fatalf("Import alice: %v", err)
	}

	var buf bytes.Buffer
	n, err := Export(ctx, store, &buf)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 4 {
		t.Errorf("Export() = %d rows, want 4", n)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != strings.Join(ExportColumns, ",") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "alice,2024-06-01T00:00:00Z,0.75,") {
		t.Errorf("first row = %q, want alice first", lines[1])
	}

	records, dropped, err := Parse(strings.NewReader(buf.String()))
	if err != nil || dropped != 0 || len(records) != 4 {
		t.Errorf("re-parse: %d records, %d dropped, err %v", len(records), dropped, err)
	}
}

func TestImport_ExportFileKeepsUsersApart(t *testing.T) {
	ctx := context.Background()
	source := testutil.NewMemoryDatabase()
	for _, obs := range []db.Observation{
		{UserID: "alice", Timestamp: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), Mood: 0.5},
		{UserID: "bob", Timestamp: time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC), Mood: -0.5},
	} {
		if _, err := source.Append(ctx, obs); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	var buf bytes.Buffer
	if _, err := Export(ctx, source, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	records, _, err := Parse(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 || records[0].UserID != "alice" || records[1].UserID != "bob" {
		t.Errorf("user ids not parsed: %+v", records)
	}

	target := testutil.NewMemoryDatabase()
	retrainer := &mockRetrainer{}
	report, err := Import(ctx, target, retrainer, "alice", strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Imported != 1 || report.OtherUsers != 1 {
		t.Errorf("report = %+v, want 1 imported and 1 skipped", report)
	}

	alice, _ := target.History(ctx, "alice")
	if len(alice) != 1 || alice[0].Mood != 0.5 {
		t.Errorf("alice history = %+v, want only her own row", alice)
	}
	bob, _ := target.History(ctx, "bob")
	if len(bob) != 0 {
		t.Errorf("bob history = %+v, want untouched", bob)
	}
	if len(retrainer.calls) != 1 || retrainer.calls[0] != "alice" {
		t.Errorf("retrain calls = %v", retrainer.calls)
	}
}
