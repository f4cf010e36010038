// Package ledger は生成クレジットの残高を管理するのだ。
package ledger

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrInsufficientCredits は残高不足を表すセンチネルなのだ。
	ErrInsufficientCredits = errors.New("クレジットが足りないのだ")
	// ErrBonusAlreadyClaimed はウェルカムボーナスの二重請求を表すのだ。
	ErrBonusAlreadyClaimed = errors.New("ボーナスは既に受け取り済みなのだ")
)

// WelcomeBonus は一度だけ請求できるボーナスクレジット数です。
const WelcomeBonus = 30

// CreditLedger は共有残高を mutex で直列化して守る台帳なのだ。
// Debit / Grant / ClaimWelcomeBonus は全てアトミックに適用されるのだ。
type CreditLedger struct {
	mu           sync.Mutex
	balance      int
	bonusClaimed bool
}

// NewCreditLedger は初期残高つきの台帳を生成するのだ。
func NewCreditLedger(initial int) *CreditLedger {
	return &CreditLedger{balance: initial}
}

// Balance は現在の残高を返すのだ。
func (l *CreditLedger) Balance() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Debit は amount 分を引き落とすのだ。残高不足なら何も変えずに
// ErrInsufficientCredits を返すのだ。
func (l *CreditLedger) Debit(amount int) error {
	if amount <= 0 {
		return fmt.Errorf("引き落とし額が不正なのだ: %d", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balance < amount {
		return fmt.Errorf("%w: 残高 %d に対して %d が必要なのだ", ErrInsufficientCredits, l.balance, amount)
	}
	l.balance -= amount
	return nil
}

// CanAfford は残高を変えずに支払い可否だけを返すのだ。
func (l *CreditLedger) CanAfford(amount int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance >= amount
}

// Grant は amount 分を加算するのだ。
func (l *CreditLedger) Grant(amount int) error {
	if amount <= 0 {
		return fmt.Errorf("付与額が不正なのだ: %d", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance += amount
	return nil
}

// ClaimWelcomeBonus はウェルカムボーナスを加算して新しい残高を返すのだ。
// 請求できるのは台帳ごとに一度だけなのだ。
func (l *CreditLedger) ClaimWelcomeBonus() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.bonusClaimed {
		return l.balance, ErrBonusAlreadyClaimed
	}
	l.bonusClaimed = true
	l.balance += WelcomeBonus
	return l.balance, nil
}

// BonusClaimed はボーナスが受け取り済みかを返すのだ。
func (l *CreditLedger) BonusClaimed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bonusClaimed
}
