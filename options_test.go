package syncproc

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMergeEnv(t *testing.T) {
	tests := []struct {
		name      string
		base      []string
		overrides map[string]string
		want      []string
	}{
		{
			name: "no overrides",
			base: []string{"A=1", "B=2"},
			want: []string{"A=1", "B=2"},
		},
		{
			name:      "override existing",
			base:      []string{"A=1", "B=2"},
			overrides: map[string]string{"A": "x"},
			want:      []string{"A=x", "B=2"},
		},
		{
			name:      "new keys sorted",
			base:      []string{"A=1"},
			overrides: map[string]string{"Z": "z", "M": "m"},
			want:      []string{"A=1", "M=m", "Z=z"},
		},
		{
			name: "later duplicate wins",
			base: []string{"A=1", "A=2"},
			want: []string{"A=2"},
		},
		{
			name:      "empty base",
			base:      []string{},
			overrides: map[string]string{"A": ""},
			want:      []string{"A="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeEnv(tt.base, tt.overrides)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mergeEnv mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEnvironment(t *testing.T) {
	t.Run("inherit", func(t *testing.T) {
		o := defaultOptions()
		if env := o.environment(); env != nil {
			t.Errorf("environment = %v, want nil", env)
		}
	})

	t.Run("empty environ", func(t *testing.T) {
		o := defaultOptions()
		WithEnviron(nil)(&o)
		env := o.environment()
		if env == nil || len(env) != 0 {
			t.Errorf("environment = %#v, want empty non-nil", env)
		}
	})

	t.Run("env on top of inherited", func(t *testing.T) {
		t.Setenv("SYNCPROC_OPTIONS_TEST", "base")
		o := defaultOptions()
		WithEnv(map[string]string{"SYNCPROC_OPTIONS_TEST": "override"})(&o)
		env := o.environment()
		if !slices.Contains(env, "SYNCPROC_OPTIONS_TEST=override") {
			t.Errorf("environment missing override: %v", env)
		}
		if slices.Contains(env, "SYNCPROC_OPTIONS_TEST=base") {
			t.Error("environment kept the overridden value")
		}
	})
}

func TestOptionsIgnoreZeroValues(t *testing.T) {
	o := defaultOptions()
	WithKillSignal(0)(&o)
	WithReadSize(0)(&o)
	WithLogger(nil)(&o)
	WithRunner(nil)(&o)

	if o.killSignal != SIGTERM {
		t.Errorf("killSignal = %v, want SIGTERM", o.killSignal)
	}
	if o.readSize != DefaultReadSize {
		t.Errorf("readSize = %d, want %d", o.readSize, DefaultReadSize)
	}
	if o.logger == nil || o.runner == nil {
		t.Error("nil logger or runner should keep the default")
	}
}
