package prefs

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/weatherwise/internal/models"
)

// openStores returns every backend that runs without external services.
func openStores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	fileStore, err := NewFileStore(filepath.Join(dir, "nested", "prefs.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	sqliteStore, err := NewSQLiteStore(ctx, filepath.Join(dir, "prefs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"sqlite": sqliteStore,
	}
}

func TestStore_Contract(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("Get(missing) = ok %v, err %v; want false, nil", ok, err)
			}
			if err := s.Set(ctx, "k", "v1"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := s.Set(ctx, "k", "v2"); err != nil {
				t.Fatalf("Set() overwrite error = %v", err)
			}
			v, ok, err := s.Get(ctx, "k")
			if err != nil || !ok || v != "v2" {
				t.Fatalf("Get(k) = %q, %v, %v; want v2, true, nil", v, ok, err)
			}
			if err := s.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if err := s.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete(missing) error = %v", err)
			}
			if _, ok, _ := s.Get(ctx, "k"); ok {
				t.Error("key still present after Delete")
			}
		})
	}
}

func TestFileStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := s.Set(ctx, KeyUnit, "F"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	s.Close()

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if v, ok, _ := reopened.Get(ctx, KeyUnit); !ok || v != "F" {
		t.Errorf("Get(unit) after reopen = %q, %v; want F", v, ok)
	}
}

func TestSQLiteStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.db")

	s, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := s.Set(ctx, KeyLastCity, "Busan"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	s.Close()

	reopened, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()
	if v, ok, _ := reopened.Get(ctx, KeyLastCity); !ok || v != "Busan" {
		t.Errorf("Get(last city) after reopen = %q, %v; want Busan", v, ok)
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	s.Close()
	if err := s.Set(context.Background(), "k", "v"); !errors.Is(err, ErrClosed) {
		t.Errorf("Set after Close error = %v, want ErrClosed", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	p, err := Load(context.Background(), NewMemoryStore(), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Unit() != models.Celsius {
		t.Errorf("Unit() = %q, want C", p.Unit())
	}
	if len(p.SavedCities()) != 0 {
		t.Errorf("SavedCities() = %v, want empty", p.SavedCities())
	}
	if _, ok := p.LastCity(); ok {
		t.Error("LastCity() present, want absent")
	}
}

func TestLoad_ReadsStoredValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Set(ctx, KeyUnit, "F")
	s.Set(ctx, KeySavedCities, `["Seoul","Tokyo"]`)
	s.Set(ctx, KeyLastCity, "Tokyo")

	p, err := Load(ctx, s, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Unit() != models.Fahrenheit {
		t.Errorf("Unit() = %q, want F", p.Unit())
	}
	if got := p.SavedCities(); !slices.Equal(got, []string{"Seoul", "Tokyo"}) {
		t.Errorf("SavedCities() = %v", got)
	}
	if c, ok := p.LastCity(); !ok || c != "Tokyo" {
		t.Errorf("LastCity() = %q, %v; want Tokyo", c, ok)
	}
}

func TestLoad_DropsDuplicateSavedCities(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Set(ctx, KeySavedCities, `["Seoul","Tokyo","Seoul","Tokyo","London"]`)

	p, err := Load(ctx, s, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []string{"Seoul", "Tokyo", "London"}
	if got := p.SavedCities(); !slices.Equal(got, want) {
		t.Errorf("SavedCities() = %v, want %v", got, want)
	}

	if err := p.RemoveCity(ctx, "Seoul"); err != nil {
		t.Fatalf("RemoveCity() error = %v", err)
	}
	if p.IsSaved("Seoul") {
		t.Error("Seoul still saved after RemoveCity")
	}
	if raw, _, _ := s.Get(ctx, KeySavedCities); raw != `["Tokyo","London"]` {
		t.Errorf("stored = %s", raw)
	}
}

func TestLoad_CorruptValuesFallBack(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Set(ctx, KeyUnit, "K")
	s.Set(ctx, KeySavedCities, "{oops")

	core, logs := observer.New(zapcore.WarnLevel)
	p, err := Load(ctx, s, zap.New(core))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Unit() != models.Celsius {
		t.Errorf("Unit() = %q, want C", p.Unit())
	}
	if len(p.SavedCities()) != 0 {
		t.Errorf("SavedCities() = %v, want empty", p.SavedCities())
	}
	if logs.Len() != 2 {
		t.Errorf("warnings = %d, want 2", logs.Len())
	}
}

func TestSaveCity_IdempotentAndOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p, _ := Load(ctx, s, nil)

	for _, c := range []string{"Seoul", "Tokyo", "Seoul", "London"} {
		if err := p.SaveCity(ctx, c); err != nil {
			t.Fatalf("SaveCity(%q) error = %v", c, err)
		}
	}
	want := []string{"Seoul", "Tokyo", "London"}
	if got := p.SavedCities(); !slices.Equal(got, want) {
		t.Errorf("SavedCities() = %v, want %v", got, want)
	}
	if raw, _, _ := s.Get(ctx, KeySavedCities); raw != `["Seoul","Tokyo","London"]` {
		t.Errorf("stored = %s", raw)
	}
	if !p.IsSaved("Tokyo") || p.IsSaved("tokyo") {
		t.Error("IsSaved must match exact names")
	}
}

func TestRemoveCity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p, _ := Load(ctx, s, nil)
	p.SaveCity(ctx, "Seoul")
	p.SaveCity(ctx, "Tokyo")

	if err := p.RemoveCity(ctx, "seoul"); err != nil {
		t.Fatalf("RemoveCity() error = %v", err)
	}
	if got := p.SavedCities(); len(got) != 2 {
		t.Errorf("case-different remove changed list: %v", got)
	}
	if err := p.RemoveCity(ctx, "Seoul"); err != nil {
		t.Fatalf("RemoveCity() error = %v", err)
	}
	if got := p.SavedCities(); !slices.Equal(got, []string{"Tokyo"}) {
		t.Errorf("SavedCities() = %v, want [Tokyo]", got)
	}
	p.RemoveCity(ctx, "Tokyo")
	if raw, _, _ := s.Get(ctx, KeySavedCities); raw != `[]` {
		t.Errorf("stored = %s, want []", raw)
	}
}

func TestSavedCities_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	p, _ := Load(ctx, NewMemoryStore(), nil)
	p.SaveCity(ctx, "Seoul")
	got := p.SavedCities()
	got[0] = "mutated"
	if p.SavedCities()[0] != "Seoul" {
		t.Error("SavedCities() exposed internal slice")
	}
}

func TestSetUnit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p, _ := Load(ctx, s, nil)

	if err := p.SetUnit(ctx, models.Fahrenheit); err != nil {
		t.Fatalf("SetUnit() error = %v", err)
	}
	if v, _, _ := s.Get(ctx, KeyUnit); v != "F" {
		t.Errorf("stored unit = %q, want F", v)
	}
	if err := p.SetUnit(ctx, "K"); err == nil {
		t.Error("SetUnit(K) error = nil, want error")
	}
	if p.Unit() != models.Fahrenheit {
		t.Errorf("Unit() = %q after rejected update, want F", p.Unit())
	}
}

func TestLastCity_SetAndClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p, _ := Load(ctx, s, nil)

	p.SetLastCity(ctx, "Paris")
	if v, ok, _ := s.Get(ctx, KeyLastCity); !ok || v != "Paris" {
		t.Errorf("stored last city = %q, %v", v, ok)
	}
	if err := p.ClearLastCity(ctx); err != nil {
		t.Fatalf("ClearLastCity() error = %v", err)
	}
	if _, ok, _ := s.Get(ctx, KeyLastCity); ok {
		t.Error("last city still stored after clear")
	}
	if _, ok := p.LastCity(); ok {
		t.Error("LastCity() present after clear")
	}
}

type failingStore struct{ *MemoryStore }

func (failingStore) Set(context.Context, string, string) error { return errors.New("disk full") }

func TestSaveCity_StoreFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	p, _ := Load(ctx, failingStore{NewMemoryStore()}, nil)
	if err := p.SaveCity(ctx, "Seoul"); err == nil {
		t.Fatal("SaveCity() error = nil, want store error")
	}
	if len(p.SavedCities()) != 0 {
		t.Errorf("SavedCities() = %v, want empty after failed write", p.SavedCities())
	}
}
