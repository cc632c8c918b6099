package agentrt

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetforge/orchestrator/orchcore"
)

type stubPromptBuilder struct {
	system, user string
	err          error
}

func (s stubPromptBuilder) BuildPrompt(ctx context.Context, req Request) (string, string, error) {
	return s.system, s.user, s.err
}

type stubArtifactProducer struct {
	artifacts []Artifact
	err       error
}

func (s stubArtifactProducer) ProduceArtifacts(ctx context.Context, result interface{}) ([]Artifact, error) {
	return s.artifacts, s.err
}

type stubHintGenerator struct {
	hints RoutingHints
	err   error
}

func (s stubHintGenerator) GenerateRoutingHints(ctx context.Context, result interface{}) (RoutingHints, error) {
	return s.hints, s.err
}

type stubClassifier struct {
	classification string
	err            error
}

func (s stubClassifier) ClassifyInput(ctx context.Context, req Request) (string, error) {
	return s.classification, s.err
}

func newWorker(completion orchcore.CompletionProvider) *BaseWorker {
	w := NewBaseWorker("analyst", completion,
		stubPromptBuilder{system: "sys", user: "user"},
		nil,
		stubArtifactProducer{artifacts: []Artifact{{Type: "file", Path: "../etc/passwd", Content: "x"}}},
		stubHintGenerator{hints: RoutingHints{SuggestNext: []string{"architect"}}},
	)
	w.Schema = ""
	return w
}

func TestExecuteHappyPathProducesArtifactsAndHints(t *testing.T) {
	completion := &orchcore.FakeCompletionProvider{Responses: []string{`{"summary": "done"}`}}
	w := newWorker(completion)

	out, err := w.Execute(context.Background(), Request{AgentType: "analyst", Auth: orchcore.Auth{TenantID: "t1", UserID: "u1", SessionID: "s1"}})
	require.NoError(t, err)
	assert.True(t, out.Success)
	require.Len(t, out.Artifacts, 1)
	assert.NotEmpty(t, out.Artifacts[0].ID)
	assert.NotContains(t, out.Artifacts[0].Path, "..")
	assert.Equal(t, []string{"architect"}, out.RoutingHints.SuggestNext)
}

func TestExecuteReturnsFailureOutputOnUnparsableCompletion(t *testing.T) {
	completion := &orchcore.FakeCompletionProvider{Responses: []string{"not json at all, sorry"}}
	w := newWorker(completion)

	out, err := w.Execute(context.Background(), Request{})
	require.NoError(t, err)
	assert.False(t, out.Success)
	require.Len(t, out.Errors, 1)
	assert.True(t, out.RoutingHints.HasFailures)
}

func TestExecuteReturnsFailureOutputOnPromptBuildError(t *testing.T) {
	completion := &orchcore.FakeCompletionProvider{Responses: []string{`{"ok": true}`}}
	w := NewBaseWorker("analyst", completion, stubPromptBuilder{err: fmt.Errorf("boom")}, nil, nil, nil)

	out, err := w.Execute(context.Background(), Request{})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Contains(t, out.Errors[0], "boom")
}

func TestExecuteRetriesRetryableTransportErrorThenSucceeds(t *testing.T) {
	completion := &retryingCompletion{
		failures: 2,
		failErr:  orchcore.NewFrameworkError("test", "transport", orchcore.ErrTransportFailed),
		final:    `{"summary": "ok"}`,
	}
	w := newWorker(completion)
	w.MaxRetries = 3

	out, err := w.Execute(context.Background(), Request{})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 3, completion.calls)
}

func TestExecuteDoesNotRetryNonRetryableTransportError(t *testing.T) {
	completion := &orchcore.FakeCompletionProvider{Err: orchcore.NewFrameworkError("test", "agent", orchcore.ErrValidationFailed)}
	w := newWorker(completion)

	out, err := w.Execute(context.Background(), Request{})
	require.NoError(t, err)
	assert.False(t, out.Success)
}

func TestExecuteWithClassifierPopulatesClassification(t *testing.T) {
	completion := &orchcore.FakeCompletionProvider{Responses: []string{`{"summary": "done"}`}}
	w := newWorker(completion).WithClassifier(stubClassifier{classification: "bug-fix"})

	out, err := w.Execute(context.Background(), Request{AgentType: "analyst"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "bug-fix", out.Classification)
}

func TestExecuteClassifierFailureIsAdvisoryNotFatal(t *testing.T) {
	completion := &orchcore.FakeCompletionProvider{Responses: []string{`{"summary": "done"}`}}
	w := newWorker(completion).WithClassifier(stubClassifier{err: fmt.Errorf("classifier boom")})

	out, err := w.Execute(context.Background(), Request{AgentType: "analyst"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Empty(t, out.Classification)
}

func TestExecuteDedupesRoutingHintsByCanonicalAgentName(t *testing.T) {
	completion := &orchcore.FakeCompletionProvider{Responses: []string{`{"summary": "done"}`}}
	w := NewBaseWorker("analyst", completion, stubPromptBuilder{system: "s", user: "u"}, nil, nil,
		stubHintGenerator{hints: RoutingHints{SuggestNext: []string{"frontenddev", "frontend_dev"}}})

	out, err := w.Execute(context.Background(), Request{})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, []string{"frontend_dev"}, out.RoutingHints.SuggestNext)
}

func TestExecuteSurfacesArtifactProducerError(t *testing.T) {
	completion := &orchcore.FakeCompletionProvider{Responses: []string{`{"summary": "done"}`}}
	w := NewBaseWorker("analyst", completion, stubPromptBuilder{system: "s", user: "u"}, nil,
		stubArtifactProducer{err: fmt.Errorf("artifact boom")}, stubHintGenerator{})

	out, err := w.Execute(context.Background(), Request{})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Contains(t, out.Errors[0], "artifact boom")
}

// retryingCompletion fails the first N calls with a retryable transport
// error, then succeeds, to exercise BaseWorker's retry loop.
type retryingCompletion struct {
	failures int
	failErr  error
	final    string
	calls    int
}

func (r *retryingCompletion) Complete(ctx context.Context, system string, messages []orchcore.Message, metadata map[string]interface{}) (string, orchcore.TokenUsage, error) {
	r.calls++
	if r.calls <= r.failures {
		return "", orchcore.TokenUsage{}, r.failErr
	}
	return r.final, orchcore.TokenUsage{InputTokens: 10, OutputTokens: 5}, nil
}
