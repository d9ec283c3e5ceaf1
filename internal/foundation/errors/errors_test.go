package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "config.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		file, exists := err.Context().GetString("file")
		if !exists || file != "config.yaml" {
			t.Errorf("expected context file=config.yaml, got %v", file)
		}
	})

	t.Run("Message includes sorted context", func(t *testing.T) {
		err := GraphError("path collision").
			WithContext("path", "/blog/").
			WithContext("count", 2).
			Build()
		want := "[graph:fatal] path collision count=2 path=/blog/"
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})

	t.Run("Detection through wrapping", func(t *testing.T) {
		base := ContentError("bad front matter").WithContext("path", "content/a.md").Build()
		wrapped := fmt.Errorf("load: %w", base)

		if !IsClassified(wrapped) {
			t.Fatal("expected wrapped error to be classified")
		}
		if !HasCategory(wrapped, CategoryContent) {
			t.Error("expected content category")
		}
		if GetSeverity(wrapped) != SeverityFatal {
			t.Error("expected fatal severity")
		}
		if base.CanRetry() {
			t.Error("content errors require user action")
		}
	})

	t.Run("WithContext copies", func(t *testing.T) {
		base := LinkError("broken link").Build()
		derived := base.WithContext("target", "@/missing.md")
		if _, ok := base.Context().Get("target"); ok {
			t.Error("base context must not be modified")
		}
		if v, _ := derived.Context().GetString("target"); v != "@/missing.md" {
			t.Errorf("unexpected target %q", v)
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	originalErr := errors.New("connection reset")
	err := WrapError(originalErr, CategoryNetwork, "external link check failed").
		WithSeverity(SeverityWarning).
		Retryable().
		WithContext("url", "https://example.com").
		Build()

	if err.RetryStrategy() != RetryBackoff {
		t.Errorf("expected retry strategy %s, got %s", RetryBackoff, err.RetryStrategy())
	}
	if !errors.Is(err, originalErr) {
		t.Error("expected error to wrap original error")
	}

	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
		severity ErrorSeverity
		retry    RetryStrategy
	}{
		{"ConfigError", ConfigError("x"), CategoryConfig, SeverityFatal, RetryNever},
		{"ValidationError", ValidationError("x"), CategoryValidation, SeverityFatal, RetryNever},
		{"ContentError", ContentError("x"), CategoryContent, SeverityFatal, RetryUserAction},
		{"GraphError", GraphError("x"), CategoryGraph, SeverityFatal, RetryUserAction},
		{"LinkError", LinkError("x"), CategoryLink, SeverityFatal, RetryUserAction},
		{"TemplateError", TemplateError("x"), CategoryTemplate, SeverityFatal, RetryNever},
		{"OutputError", OutputError("x"), CategoryOutput, SeverityFatal, RetryNever},
		{"FileSystemError", FileSystemError("x"), CategoryFileSystem, SeverityFatal, RetryNever},
		{"NetworkError", NetworkError("x"), CategoryNetwork, SeverityError, RetryBackoff},
		{"RuntimeError", RuntimeError("x"), CategoryRuntime, SeverityFatal, RetryNever},
		{"InternalError", InternalError("x"), CategoryInternal, SeverityFatal, RetryNever},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			built := tt.builder.Build()
			if built.Category() != tt.category {
				t.Errorf("category = %s, want %s", built.Category(), tt.category)
			}
			if built.Severity() != tt.severity {
				t.Errorf("severity = %s, want %s", built.Severity(), tt.severity)
			}
			if built.RetryStrategy() != tt.retry {
				t.Errorf("retry = %s, want %s", built.RetryStrategy(), tt.retry)
			}
		})
	}
}
