// Package payment 支付服务（provider）：支付记录、hystrix 演示接口
package payment

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Payment 支付记录
type Payment struct {
	ID     int64  `json:"id" form:"id"`
	Serial string `json:"serial" form:"serial"`
}

// Validate 流水号必填，长度 1-200
func (p *Payment) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Serial, validation.Required, validation.Length(1, 200)),
	)
}

// SeedPayments Nacos provider 演示用的三条记录
func SeedPayments() []Payment {
	return []Payment{
		{ID: 1, Serial: "28a8c1e3bc2742d8848569891fb42181"},
		{ID: 2, Serial: "bba8c1e3bc2742d8848569891ac32182"},
		{ID: 3, Serial: "6ua8c1e3bc2742d8848569891xt92183"},
	}
}
