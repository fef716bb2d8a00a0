package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	ActivityPolicyBeginIntake       = "begin_intake"
	ActivityPolicyClassifyDocument  = "classify_document"
	ActivityPolicyExtractFacts      = "extract_facts"
	ActivityPolicyValidateFacts     = "validate_facts"
	ActivityPolicyCorrectFacts      = "correct_facts"
	ActivityPolicyQueueReview       = "queue_review"
	ActivityPolicyResolveReview     = "resolve_review"
	ActivityPolicyApplyCorrection   = "apply_reviewer_correction"
	ActivityPolicyFinalizeDocument  = "finalize_document"
	ActivityPolicyRejectDocument    = "reject_document"
	ActivityPolicyRunPreflight      = "run_preflight"
	ActivityPolicyGenerateNarrative = "generate_narrative"
	ActivityPolicyCompleteIntake    = "complete_intake"
	ActivityPolicyFailIntake        = "fail_intake"
)

type activityPolicy struct {
	StartToCloseTimeout time.Duration
	RetryPolicy         temporal.RetryPolicy
}

var defaultRetry = temporal.RetryPolicy{
	InitialInterval:    1 * time.Second,
	BackoffCoefficient: 2,
	MaximumInterval:    10 * time.Second,
	MaximumAttempts:    3,
}

// LLM activities get a single attempt: the extract/repair ladder retries
// internally and a blind re-run burns tokens without new information.
var singleAttempt = temporal.RetryPolicy{MaximumAttempts: 1}

var activityPolicies = map[string]activityPolicy{
	ActivityPolicyBeginIntake:       {StartToCloseTimeout: 2 * time.Minute, RetryPolicy: defaultRetry},
	ActivityPolicyClassifyDocument:  {StartToCloseTimeout: 2 * time.Minute, RetryPolicy: defaultRetry},
	ActivityPolicyExtractFacts:      {StartToCloseTimeout: 2 * time.Minute, RetryPolicy: singleAttempt},
	ActivityPolicyValidateFacts:     {StartToCloseTimeout: 2 * time.Minute, RetryPolicy: defaultRetry},
	ActivityPolicyCorrectFacts:      {StartToCloseTimeout: 2 * time.Minute, RetryPolicy: singleAttempt},
	ActivityPolicyQueueReview:       {StartToCloseTimeout: 2 * time.Minute, RetryPolicy: defaultRetry},
	ActivityPolicyResolveReview:     {StartToCloseTimeout: 2 * time.Minute, RetryPolicy: defaultRetry},
	ActivityPolicyApplyCorrection:   {StartToCloseTimeout: 2 * time.Minute, RetryPolicy: defaultRetry},
	ActivityPolicyFinalizeDocument:  {StartToCloseTimeout: 2 * time.Minute, RetryPolicy: defaultRetry},
	ActivityPolicyRejectDocument:    {StartToCloseTimeout: 2 * time.Minute, RetryPolicy: defaultRetry},
	ActivityPolicyRunPreflight:      {StartToCloseTimeout: 2 * time.Minute, RetryPolicy: defaultRetry},
	ActivityPolicyGenerateNarrative: {StartToCloseTimeout: 2 * time.Minute, RetryPolicy: singleAttempt},
	ActivityPolicyCompleteIntake:    {StartToCloseTimeout: 2 * time.Minute, RetryPolicy: defaultRetry},
	ActivityPolicyFailIntake:        {StartToCloseTimeout: 2 * time.Minute, RetryPolicy: defaultRetry},
}

func ActivityOptionsFor(policyName string) (workflow.ActivityOptions, error) {
	policy, ok := activityPolicies[policyName]
	if !ok {
		return workflow.ActivityOptions{}, fmt.Errorf("unknown activity policy: %s", policyName)
	}

	retry := policy.RetryPolicy
	return workflow.ActivityOptions{
		StartToCloseTimeout: policy.StartToCloseTimeout,
		RetryPolicy:         &retry,
	}, nil
}

func mustActivityContext(ctx workflow.Context, policyName string) workflow.Context {
	ao, err := ActivityOptionsFor(policyName)
	if err != nil {
		panic(err)
	}
	return workflow.WithActivityOptions(ctx, ao)
}
