// Package ledger 实现接触账本持久化
// 每人一个账页，记录与其他人员的累计风险百分比与接触时间戳；
// 支持按人分文件的 JSON 后端和可选的 Postgres 后端
package ledger

import (
	"time"
)

// Store 接触账本存储接口
type Store interface {
	// Record 把一段接触的累计风险记入 person 名下的 other 条目
	// start/end 为该段接触的开始与结束时刻
	// （文件账本只持久化 start，end 供其他后端使用）
	Record(person, other string, risk float64, start, end time.Time) error
	// Close 释放底层资源
	Close() error
}

// ContactRecord 账页中某一位接触对象的条目
type ContactRecord struct {
	Timestamps  []string `json:"timestamps"`
	RiskPercent float64  `json:"risk_percent"`
}

// PersonLedger 一个人的完整账页
type PersonLedger struct {
	Person   string                    `json:"person"`
	Contacts map[string]*ContactRecord `json:"contacts"`
}

// applyRisk 追加时间戳并累加风险百分比，封顶 100
func (p *PersonLedger) applyRisk(other string, risk float64, start time.Time) {
	if p.Contacts == nil {
		p.Contacts = make(map[string]*ContactRecord)
	}
	record, ok := p.Contacts[other]
	if !ok {
		record = &ContactRecord{Timestamps: []string{}}
		p.Contacts[other] = record
	}
	record.Timestamps = append(record.Timestamps, start.UTC().Format(time.RFC3339))
	percent := record.RiskPercent + risk*100.0
	if percent > 100.0 {
		percent = 100.0
	}
	record.RiskPercent = percent
}
