package usecase

import (
	"time"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
)

type options struct {
	newTransactionID func() string
	now              func() time.Time
}

// Option 定義 service 的配置選項函數
type Option func(*options)

// WithTransactionIDGenerator 替換交易編號產生器 (測試用)
func WithTransactionIDGenerator(gen func() string) Option {
	return func(o *options) {
		o.newTransactionID = gen
	}
}

// WithClock 替換時間來源 (測試用)
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func newOptions(opts []Option) options {
	o := options{
		newTransactionID: domain.NewTransactionID,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
