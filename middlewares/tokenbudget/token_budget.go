package tokenbudget

import (
	"context"

	mw "ember/internal/middleware"
)

func init() {
	mw.Register(BudgetLimiter{})
}

// BudgetLimiter caps the request's MaxTokens when the caller supplies a
// budget in Event.Context:
//
//	"token_budget"      (int) hard cap on output tokens
//	"max_prompt_tokens" (int) model prompt budget; requests whose estimated
//	                          prompt already exceeds it are cancelled
type BudgetLimiter struct{}

func (BudgetLimiter) ID() string    { return "token_budget" }
func (BudgetLimiter) Priority() int { return 90 }

func (BudgetLimiter) ShouldLoad(_ context.Context, _ *mw.Event) bool { return true }

func (BudgetLimiter) OnEvent(_ context.Context, e *mw.Event) (mw.Decision, error) {
	if e == nil || e.Name != mw.EventBeforeLLMRequest {
		return mw.Decision{}, nil
	}

	if limit, ok := e.Context["max_prompt_tokens"].(int); ok && limit > 0 {
		if est := mw.EstimateTokens(e.UserText); est > limit {
			return mw.Decision{
				Cancel: true,
				Reason: "token_budget: prompt exceeds model budget",
			}, nil
		}
	}

	budget, ok := e.Context["token_budget"].(int)
	if !ok || budget <= 0 {
		return mw.Decision{}, nil
	}

	// Copy params so downstream middlewares can mutate safely.
	params := &mw.LLMParams{}
	if e.Params != nil {
		*params = *e.Params
	}
	if params.MaxTokens == nil || *params.MaxTokens > budget {
		capped := budget
		params.MaxTokens = &capped
		return mw.Decision{
			OverrideParams: params,
			Reason:         "token_budget: capped MaxTokens",
		}, nil
	}
	return mw.Decision{}, nil
}
