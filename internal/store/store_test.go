package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fixedWd(dir string) func() (string, error) {
	return func() (string, error) { return dir, nil }
}

func TestResolve(t *testing.T) {
	r := Resolver{Getwd: fixedWd("/srv/app")}

	tests := []struct {
		name       string
		descriptor string
		want       string
	}{
		{name: "relative", descriptor: "sqlite:data/app.db", want: "/srv/app/data/app.db"},
		{name: "relative with authority", descriptor: "sqlite://data/app.db", want: "/srv/app/data/app.db"},
		{name: "absolute", descriptor: "sqlite:/abs/app.db", want: "/abs/app.db"},
		{name: "absolute with authority", descriptor: "sqlite:///abs/app.db", want: "/abs/app.db"},
		{name: "bare relative", descriptor: "app.db", want: "/srv/app/app.db"},
		{name: "bare absolute", descriptor: "/abs/app.db", want: "/abs/app.db"},
		{name: "dot segments", descriptor: "sqlite:./data/../app.db", want: "/srv/app/app.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.descriptor)
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.descriptor, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.descriptor, got, tt.want)
			}
		})
	}
}

func TestResolveFormsAgree(t *testing.T) {
	r := Resolver{Getwd: fixedWd("/srv/app")}

	for _, p := range []string{"data/app.db", "/abs/app.db", "app.db"} {
		plain, err := r.Resolve("sqlite:" + p)
		if err != nil {
			t.Fatalf("Resolve(plain %q) error = %v", p, err)
		}
		authority, err := r.Resolve("sqlite://" + p)
		if err != nil {
			t.Fatalf("Resolve(authority %q) error = %v", p, err)
		}
		if plain != authority {
			t.Errorf("forms disagree for %q: %q vs %q", p, plain, authority)
		}
		if !filepath.IsAbs(plain) {
			t.Errorf("Resolve(%q) = %q, want absolute path", p, plain)
		}
	}
}

func TestResolveWorkingDirectoryError(t *testing.T) {
	wdErr := errors.New("getwd: no such file or directory")
	r := Resolver{Getwd: func() (string, error) { return "", wdErr }}

	_, err := r.Resolve("sqlite:data/app.db")
	if !errors.Is(err, ErrEnvironment) {
		t.Fatalf("Resolve() error = %v, want ErrEnvironment", err)
	}
	if !errors.Is(err, wdErr) {
		t.Errorf("Resolve() error = %v, want underlying cause preserved", err)
	}

	// absolute paths never consult the working directory
	if _, err := r.Resolve("sqlite:/abs/app.db"); err != nil {
		t.Errorf("Resolve(absolute) error = %v", err)
	}
}

func TestResolvePath(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	got, err := ResolvePath("sqlite:data/app.db")
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	if want := filepath.Join(wd, "data", "app.db"); got != want {
		t.Errorf("ResolvePath() = %q, want %q", got, want)
	}
}

func TestCanonicalURL(t *testing.T) {
	if got := CanonicalURL("/srv/app/data/app.db"); got != "sqlite:/srv/app/data/app.db" {
		t.Errorf("CanonicalURL() = %q", got)
	}
}

func mkdirParent(t *testing.T, dbPath string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		t.Fatal(err)
	}
}

func TestCheckExists(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, dbPath string)
		want    bool
		wantErr error
	}{
		{
			name:    "missing directory",
			prepare: func(t *testing.T, dbPath string) {},
			want:    false,
		},
		{
			name:    "missing file",
			prepare: mkdirParent,
			want:    false,
		},
		{
			name: "regular file",
			prepare: func(t *testing.T, dbPath string) {
				mkdirParent(t, dbPath)
				if err := os.WriteFile(dbPath, nil, 0o600); err != nil {
					t.Fatal(err)
				}
			},
			want: true,
		},
		{
			name: "directory in place of the file",
			prepare: func(t *testing.T, dbPath string) {
				if err := os.MkdirAll(dbPath, 0o750); err != nil {
					t.Fatal(err)
				}
			},
			wantErr: ErrFilesystem,
		},
		{
			name: "parent is a regular file",
			prepare: func(t *testing.T, dbPath string) {
				if err := os.WriteFile(filepath.Dir(dbPath), nil, 0o600); err != nil {
					t.Fatal(err)
				}
			},
			wantErr: ErrFilesystem,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath := filepath.Join(t.TempDir(), "data", "momentum.db")
			tt.prepare(t, dbPath)

			got, err := CheckExists(dbPath)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CheckExists() error = %v, want %v", err, tt.wantErr)
				}
				if !strings.Contains(err.Error(), dbPath) {
					t.Errorf("error %q does not name %s", err, dbPath)
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckExists() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CheckExists() = %v, want %v", got, tt.want)
			}
		})
	}
}
