package defectops

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"railguard/internal/domain/defect"
	"railguard/internal/infrastructure/persistence/sqlite/model"
	"railguard/internal/infrastructure/persistence/sqlite/repository"
	"railguard/internal/infrastructure/persistence/sqlite/uow"
	"railguard/internal/ports"
)

type stubAdvisory struct {
	result ports.AdvisoryResult
	err    error
	calls  int
}

func (s *stubAdvisory) Analyze(_ context.Context, _ string, _ float64, _ string) (ports.AdvisoryResult, error) {
	s.calls++
	return s.result, s.err
}

type recordingAlerter struct {
	sent chan ports.Alert
}

func newRecordingAlerter() *recordingAlerter {
	return &recordingAlerter{sent: make(chan ports.Alert, 4)}
}

func (r *recordingAlerter) Send(_ context.Context, alert ports.Alert) error {
	r.sent <- alert
	return nil
}

func (r *recordingAlerter) wait(t *testing.T) ports.Alert {
	t.Helper()
	select {
	case alert := <-r.sent:
		return alert
	case <-time.After(2 * time.Second):
		t.Fatalf("no alert dispatched within 2s")
		return ports.Alert{}
	}
}

type stubImages struct {
	removed []string
}

func (s *stubImages) Save(_ context.Context, _ io.Reader, originalName string) (string, error) {
	return originalName, nil
}

func (s *stubImages) Remove(_ context.Context, ref string) error {
	s.removed = append(s.removed, ref)
	return nil
}

func (s *stubImages) Path(ref string) string { return ref }

type testEnv struct {
	svc      *Service
	defects  ports.DefectRepository
	stations ports.StationRepository
	advisory *stubAdvisory
	alerter  *recordingAlerter
	images   *stubImages
	clock    *clockwork.FakeClock
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "railguard.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&model.Defect{}, &model.Station{}, &model.User{}, &model.AgentKV{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	env := &testEnv{
		defects:  repository.NewDefectRepository(db),
		stations: repository.NewStationRepository(db),
		advisory: &stubAdvisory{},
		alerter:  newRecordingAlerter(),
		images:   &stubImages{},
		clock:    clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
	}
	env.svc = NewService(
		env.defects,
		env.stations,
		uow.NewUnitOfWork(db),
		env.advisory,
		env.alerter,
		env.images,
		WithClock(env.clock),
		WithFallbackRecipient("fallback@example.com"),
	)
	return env
}

func (e *testEnv) seedStation(t *testing.T, name, code string, lat, lon float64, email string) ports.Station {
	t.Helper()
	station, err := e.stations.Create(context.Background(), ports.Station{
		Name: name, Code: code, Latitude: lat, Longitude: lon, ContactEmail: email,
	})
	if err != nil {
		t.Fatalf("seed station: %v", err)
	}
	return station
}

func floatPtr(v float64) *float64 { return &v }

func adminActor() defect.Actor {
	return defect.Actor{UserID: 1, Role: defect.RoleAdmin}
}

func masterActor(stationID uint64) defect.Actor {
	return defect.Actor{UserID: 2, Role: defect.RoleStationMaster, StationID: &stationID}
}

func TestIngestAssignsNearestStationAndAlerts(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	delhi := env.seedStation(t, "New Delhi Railway Station", "NDLS", 28.6435, 77.2197, "ndls@example.com")
	env.seedStation(t, "Mumbai Central", "MMCT", 18.9696, 72.8195, "mmct@example.com")

	env.advisory.result = ports.AdvisoryResult{
		RootCause:       "Rail fracture from thermal stress",
		SeverityRaw:     "Critical",
		ImmediateAction: "Impose speed restriction",
		ResolutionSteps: "1. Isolate block 2. Replace rail",
	}

	created, err := env.svc.Ingest(ctx, IngestInput{
		DefectType: "Track Defect",
		Confidence: 92.4,
		ImageRef:   "capture.jpg",
		Latitude:   floatPtr(28.70),
		Longitude:  floatPtr(77.10),
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if created.Severity != defect.SeverityCritical {
		t.Fatalf("Ingest() severity = %q", created.Severity)
	}
	if created.AssignedStationID == nil || *created.AssignedStationID != delhi.StationID {
		t.Fatalf("Ingest() assigned_station_id = %v, want %d", created.AssignedStationID, delhi.StationID)
	}
	if created.RootCause != "Rail fracture from thermal stress" {
		t.Fatalf("Ingest() root_cause = %q", created.RootCause)
	}

	alert := env.alerter.wait(t)
	if alert.Recipient != "ndls@example.com" {
		t.Fatalf("alert recipient = %q, want station contact", alert.Recipient)
	}
	if alert.Subject != "CRITICAL: Railway Defect at New Delhi Railway Station" {
		t.Fatalf("alert subject = %q", alert.Subject)
	}
	if alert.HTMLBody == "" || alert.TextBody == "" {
		t.Fatalf("alert bodies must both be set")
	}
}

func TestIngestAdvisoryFailureUsesDefaults(t *testing.T) {
	env := setupEnv(t)
	env.advisory.err = errors.New("upstream 500")

	created, err := env.svc.Ingest(context.Background(), IngestInput{
		DefectType: "Track Defect",
		Confidence: 75,
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if created.Severity != defect.SeverityHigh {
		t.Fatalf("severity = %q, want High fold for missing advisory", created.Severity)
	}
	if created.RootCause != "Analysis pending" {
		t.Fatalf("root_cause = %q", created.RootCause)
	}
	if created.ActionRequired != "Awaiting assessment" {
		t.Fatalf("action_required = %q", created.ActionRequired)
	}
	if created.ResolutionSteps != "Pending detailed analysis" {
		t.Fatalf("resolution_steps = %q", created.ResolutionSteps)
	}
}

func TestIngestWithoutCoordinatesSkipsAssignment(t *testing.T) {
	env := setupEnv(t)
	env.seedStation(t, "New Delhi Railway Station", "NDLS", 28.6435, 77.2197, "ndls@example.com")

	created, err := env.svc.Ingest(context.Background(), IngestInput{
		DefectType: "Track Defect",
		Confidence: 80,
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if created.AssignedStationID != nil {
		t.Fatalf("assigned_station_id = %v, want nil without coordinates", created.AssignedStationID)
	}
}

func TestIngestCriticalWithoutStationUsesFallbackRecipient(t *testing.T) {
	env := setupEnv(t)
	env.advisory.result = ports.AdvisoryResult{
		RootCause: "x", SeverityRaw: "severe", ImmediateAction: "y", ResolutionSteps: "z",
	}

	if _, err := env.svc.Ingest(context.Background(), IngestInput{
		DefectType: "Track Defect",
		Confidence: 88,
	}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	alert := env.alerter.wait(t)
	if alert.Recipient != "fallback@example.com" {
		t.Fatalf("alert recipient = %q, want fallback", alert.Recipient)
	}
}

func TestIngestNonCriticalDoesNotAlert(t *testing.T) {
	env := setupEnv(t)
	env.advisory.result = ports.AdvisoryResult{
		RootCause: "x", SeverityRaw: "low", ImmediateAction: "y", ResolutionSteps: "z",
	}

	if _, err := env.svc.Ingest(context.Background(), IngestInput{
		DefectType: "Track Defect",
		Confidence: 60,
	}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	select {
	case alert := <-env.alerter.sent:
		t.Fatalf("unexpected alert for low severity: %+v", alert)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestIngestValidation(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input IngestInput
	}{
		{"empty type", IngestInput{Confidence: 50}},
		{"confidence over 100", IngestInput{DefectType: "Track Defect", Confidence: 101}},
		{"negative confidence", IngestInput{DefectType: "Track Defect", Confidence: -1}},
		{"latitude without longitude", IngestInput{DefectType: "Track Defect", Confidence: 50, Latitude: floatPtr(28)}},
		{"latitude out of range", IngestInput{DefectType: "Track Defect", Confidence: 50, Latitude: floatPtr(91), Longitude: floatPtr(0)}},
		{"longitude out of range", IngestInput{DefectType: "Track Defect", Confidence: 50, Latitude: floatPtr(0), Longitude: floatPtr(181)}},
	}
	for _, tc := range cases {
		if _, err := env.svc.Ingest(ctx, tc.input); !errors.Is(err, defect.ErrInvalidInput) {
			t.Fatalf("Ingest() %s error = %v, want ErrInvalidInput", tc.name, err)
		}
	}
}

func TestResolveAuthorization(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	delhi := env.seedStation(t, "New Delhi Railway Station", "NDLS", 28.6435, 77.2197, "ndls@example.com")
	other := env.seedStation(t, "Mumbai Central", "MMCT", 18.9696, 72.8195, "mmct@example.com")

	created, err := env.svc.Ingest(ctx, IngestInput{
		DefectType: "Track Defect",
		Confidence: 80,
		Latitude:   floatPtr(28.70),
		Longitude:  floatPtr(77.10),
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	// A master of another station must not resolve it.
	if _, err := env.svc.Resolve(ctx, created.DefectID, masterActor(other.StationID)); !errors.Is(err, defect.ErrNotAuthorized) {
		t.Fatalf("Resolve() cross-station error = %v, want ErrNotAuthorized", err)
	}

	resolved, err := env.svc.Resolve(ctx, created.DefectID, masterActor(delhi.StationID))
	if err != nil {
		t.Fatalf("Resolve() own station error = %v", err)
	}
	if resolved.Status != defect.StatusResolved {
		t.Fatalf("Resolve() status = %q", resolved.Status)
	}
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != 2 {
		t.Fatalf("Resolve() resolved_by = %v", resolved.ResolvedBy)
	}
	if resolved.ResolvedAt == nil || !resolved.ResolvedAt.Equal(env.clock.Now().UTC()) {
		t.Fatalf("Resolve() resolved_at = %v", resolved.ResolvedAt)
	}

	if _, err := env.svc.Resolve(ctx, created.DefectID, adminActor()); !errors.Is(err, defect.ErrAlreadyResolved) {
		t.Fatalf("Resolve() twice error = %v, want ErrAlreadyResolved", err)
	}
}

func TestReopenAdminOnly(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	created, err := env.svc.Ingest(ctx, IngestInput{DefectType: "Track Defect", Confidence: 80})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if _, err := env.svc.Reopen(ctx, created.DefectID, adminActor()); !errors.Is(err, defect.ErrAlreadyOpen) {
		t.Fatalf("Reopen() open defect error = %v, want ErrAlreadyOpen", err)
	}

	if _, err := env.svc.Resolve(ctx, created.DefectID, adminActor()); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if _, err := env.svc.Reopen(ctx, created.DefectID, masterActor(1)); !errors.Is(err, defect.ErrNotAuthorized) {
		t.Fatalf("Reopen() as master error = %v, want ErrNotAuthorized", err)
	}

	reopened, err := env.svc.Reopen(ctx, created.DefectID, adminActor())
	if err != nil {
		t.Fatalf("Reopen() as admin error = %v", err)
	}
	if reopened.Status != defect.StatusOpen || reopened.ResolvedAt != nil || reopened.ResolvedBy != nil {
		t.Fatalf("Reopen() = %+v, want open with cleared resolution", reopened)
	}
}

func TestDeleteRemovesImage(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	created, err := env.svc.Ingest(ctx, IngestInput{DefectType: "Track Defect", Confidence: 80, ImageRef: "evidence.jpg"})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if err := env.svc.Delete(ctx, created.DefectID, masterActor(1)); !errors.Is(err, defect.ErrNotAuthorized) {
		t.Fatalf("Delete() as master error = %v, want ErrNotAuthorized", err)
	}

	if err := env.svc.Delete(ctx, created.DefectID, adminActor()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(env.images.removed) != 1 || env.images.removed[0] != "evidence.jpg" {
		t.Fatalf("image removals = %v, want [evidence.jpg]", env.images.removed)
	}
	if _, err := env.svc.Get(ctx, created.DefectID); !errors.Is(err, ports.ErrDefectNotFound) {
		t.Fatalf("Get() after delete error = %v, want ErrDefectNotFound", err)
	}
}

func TestBulkDeletePartialFailure(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	first, err := env.svc.Ingest(ctx, IngestInput{DefectType: "Track Defect", Confidence: 80})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	second, err := env.svc.Ingest(ctx, IngestInput{DefectType: "Track Defect", Confidence: 81})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	result, err := env.svc.BulkDelete(ctx, []uint64{first.DefectID, 9999, second.DefectID}, adminActor())
	if err != nil {
		t.Fatalf("BulkDelete() error = %v", err)
	}
	if result.DeletedCount != 2 {
		t.Fatalf("BulkDelete() deleted = %d, want 2", result.DeletedCount)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("BulkDelete() errors = %v, want one entry", result.Errors)
	}

	if _, err := env.svc.BulkDelete(ctx, []uint64{1}, masterActor(1)); !errors.Is(err, defect.ErrNotAuthorized) {
		t.Fatalf("BulkDelete() as master error = %v, want ErrNotAuthorized", err)
	}
}

func TestListPagination(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := env.svc.Ingest(ctx, IngestInput{DefectType: "Track Defect", Confidence: 80}); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
	}

	items, err := env.svc.List(ctx, 0, 3)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("List() len = %d, want 3", len(items))
	}

	rest, err := env.svc.List(ctx, 3, 3)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("List() rest len = %d, want 2", len(rest))
	}
}
