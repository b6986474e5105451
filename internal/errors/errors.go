// Package errors provides categorised errors with structured context and
// process-wide hooks. Error values wrap the original error, so the standard
// Is and As keep working through them.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrorCategory groups errors for status mapping and metrics.
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryFileParsing   ErrorCategory = "file-parsing"
	CategoryNetwork       ErrorCategory = "network"
	CategoryHTTP          ErrorCategory = "http-request"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryImageFetch    ErrorCategory = "image-fetch"
	CategoryImageDecode   ErrorCategory = "image-decode"
	CategoryImageProvider ErrorCategory = "image-provider"
	CategoryChartRender   ErrorCategory = "chart-render"
	CategoryProjection    ErrorCategory = "projection"
	CategoryAggregation   ErrorCategory = "aggregation"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryLimit         ErrorCategory = "limit"
	CategoryProcessing    ErrorCategory = "processing"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryCancellation  ErrorCategory = "cancellation"
	CategoryGeneric       ErrorCategory = "generic"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// modulePath is skipped while walking the stack for component detection.
const modulePath = "github.com/tphakala/plantclef-go/internal/errors"

// EnhancedError wraps an error with a category, the component that raised it
// and context values.
type EnhancedError struct {
	Err       error
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time

	component string
}

func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches another EnhancedError of the same category, or the wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

// GetComponent returns the component name, or ComponentUnknown.
func (ee *EnhancedError) GetComponent() string {
	return ee.component
}

// GetCategory returns the category as a string, for labels and JSON.
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetContext returns a copy of the error context.
func (ee *EnhancedError) GetContext() map[string]any {
	if ee.Context == nil {
		return nil
	}
	return maps.Clone(ee.Context)
}

// ErrorBuilder assembles an EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts building an error around err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts building an error from a format string; %w is honoured.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name; it is otherwise detected from the stack
// when hooks are installed.
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds one context value.
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// FileContext records the kind of path and its extension, never the path itself.
func (eb *ErrorBuilder) FileContext(filePath string, fileSize int64) *ErrorBuilder {
	if filePath != "" {
		eb.Context("file_type", categorizeFilePath(filePath))
		eb.Context("file_extension", fileExtension(filePath))
	}
	if fileSize > 0 {
		eb.Context("file_size_category", categorizeFileSize(fileSize))
	}
	return eb
}

// NetworkContext records the URL scheme and the timeout in effect.
func (eb *ErrorBuilder) NetworkContext(url string, timeout time.Duration) *ErrorBuilder {
	if url != "" {
		eb.Context("url_category", categorizeURL(url))
	}
	if timeout > 0 {
		eb.Context("timeout_seconds", timeout.Seconds())
	}
	return eb
}

// Build creates the EnhancedError and passes it to every registered hook.
func (eb *ErrorBuilder) Build() *EnhancedError {
	if eb.err == nil {
		eb.err = stderrors.New("unknown error")
	}

	hooked := hasActiveHooks.Load()
	component := eb.component
	if component == "" && hooked {
		// stack inspection is only worth it when someone observes the result
		component = detectComponent()
	}
	if component == "" {
		component = ComponentUnknown
	}

	category := eb.category
	if category == "" {
		category = detectCategory(eb.err, component)
	}

	ee := &EnhancedError{
		Err:       eb.err,
		Category:  category,
		Context:   eb.context,
		Timestamp: time.Now(),
		component: component,
	}
	if hooked {
		notifyHooks(ee)
	}
	return ee
}

// ErrorHook observes every built error.
type ErrorHook func(ee *EnhancedError)

var (
	hooksMu        sync.RWMutex
	errorHooks     []ErrorHook
	hasActiveHooks atomic.Bool
)

// AddErrorHook registers a process-wide hook.
func AddErrorHook(hook ErrorHook) {
	if hook == nil {
		return
	}
	hooksMu.Lock()
	defer hooksMu.Unlock()
	errorHooks = append(errorHooks, hook)
	hasActiveHooks.Store(true)
}

// ClearErrorHooks removes all registered hooks.
func ClearErrorHooks() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	errorHooks = nil
	hasActiveHooks.Store(false)
}

func notifyHooks(ee *EnhancedError) {
	hooksMu.RLock()
	hooks := append([]ErrorHook(nil), errorHooks...)
	hooksMu.RUnlock()

	for _, hook := range hooks {
		hook(ee)
	}
}

// components maps package paths to component names, most specific first.
var components = []struct{ pattern, name string }{
	{"internal/submission", "submission"},
	{"internal/dataset", "dataset"},
	{"internal/charts", "charts"},
	{"internal/projection", "projection"},
	{"internal/imageprovider", "imageprovider"},
	{"internal/httpclient", "httpclient"},
	{"internal/conf", "configuration"},
	{"internal/api", "api"},
	{"internal/explorer", "explorer"},
	{"internal/observability", "observability"},
}

// detectComponent returns the component of the nearest caller outside this package.
func detectComponent() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.Function, modulePath) {
			for _, c := range components {
				if strings.Contains(frame.Function, c.pattern) {
					return c.name
				}
			}
		}
		if !more {
			return ""
		}
	}
}

// categorized is implemented by errors that know their own category.
type categorized interface {
	ErrorCategory() ErrorCategory
}

// ErrorCategory lets a wrapped EnhancedError lend its category to an outer one.
func (ee *EnhancedError) ErrorCategory() ErrorCategory {
	return ee.Category
}

// detectCategory derives a category from the error chain, its message and
// finally the component.
func detectCategory(err error, component string) ErrorCategory {
	var c categorized
	if stderrors.As(err, &c) && c.ErrorCategory() != "" {
		return c.ErrorCategory()
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return CategoryTimeout
	case strings.Contains(msg, "context canceled"):
		return CategoryCancellation
	case strings.Contains(msg, "no such file"), strings.Contains(msg, "permission denied"):
		return CategoryFileIO
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "missing"):
		return CategoryValidation
	}

	switch component {
	case "imageprovider":
		return CategoryImageProvider
	case "charts":
		return CategoryChartRender
	case "projection":
		return CategoryProjection
	case "submission":
		return CategoryAggregation
	case "configuration":
		return CategoryConfiguration
	}
	return CategoryGeneric
}

func categorizeFilePath(path string) string {
	if strings.HasPrefix(path, "/") || strings.Contains(path, ":\\") {
		return "absolute-path"
	}
	return "relative-path"
}

func fileExtension(path string) string {
	if i := strings.LastIndex(path, "."); i > 0 && i < len(path)-1 {
		return strings.ToLower(path[i+1:])
	}
	return "none"
}

func categorizeFileSize(size int64) string {
	switch {
	case size < 1<<10:
		return "tiny"
	case size < 1<<20:
		return "small"
	case size < 10<<20:
		return "medium"
	case size < 100<<20:
		return "large"
	default:
		return "very-large"
	}
}

func categorizeURL(url string) string {
	switch url = strings.ToLower(url); {
	case strings.HasPrefix(url, "http://"):
		return "http-endpoint"
	case strings.HasPrefix(url, "https://"):
		return "https-endpoint"
	default:
		return "other-protocol"
	}
}

// ValidationError creates an error in the validation category.
func ValidationError(message string) *EnhancedError {
	return New(stderrors.New(message)).Category(CategoryValidation).Build()
}

// NotFound creates an error in the not-found category.
func NotFound(format string, args ...any) *EnhancedError {
	return Newf(format, args...).Category(CategoryNotFound).Build()
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// IsCategory reports whether err wraps an EnhancedError of category.
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	return As(err, &ee) && ee.Category == category
}

// IsNotFound reports whether err is in the not-found category.
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}

// IsValidation reports whether err is in the validation category.
func IsValidation(err error) bool {
	return IsCategory(err, CategoryValidation)
}
