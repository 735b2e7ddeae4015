package notify

import (
	"context"

	"accountsvc/internal/domain"
	"accountsvc/pkg/circuitbreaker"
	"accountsvc/pkg/logger"
)

// BreakerSender stops calling a failing downstream sender until the breaker
// half-opens.
type BreakerSender struct {
	next    Sender
	breaker *circuitbreaker.CircuitBreaker
}

func NewBreakerSender(next Sender, st circuitbreaker.Settings, log logger.Logger) *BreakerSender {
	if st.OnStateChange == nil {
		st.OnStateChange = func(name string, from, to circuitbreaker.State) {
			log.Warn("Notifier circuit breaker changed state", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		}
	}
	return &BreakerSender{next: next, breaker: circuitbreaker.New(st)}
}

func (s *BreakerSender) Send(ctx context.Context, notice domain.ResetNotice) error {
	return s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.next.Send(ctx, notice)
	})
}

func (s *BreakerSender) State() circuitbreaker.State {
	return s.breaker.State()
}
