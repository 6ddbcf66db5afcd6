package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNewRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)

	if rl.Rate() != 10 {
		t.Errorf("Rate = %v, ожидался дефолт 10", rl.Rate())
	}
	if rl.Burst() != 20 {
		t.Errorf("Burst = %v, ожидался дефолт 20", rl.Burst())
	}
}

func TestNewRateLimiter_BurstNotBelowRate(t *testing.T) {
	rl := NewRateLimiter(10, 5)

	if rl.Burst() < rl.Rate() {
		t.Errorf("Burst (%v) не может быть меньше Rate (%v)", rl.Burst(), rl.Rate())
	}
}

func TestAllow_BurstThenDeny(t *testing.T) {
	rl := NewRateLimiter(1, 3) // медленное пополнение, ведро на 3

	// Первые 3 запроса проходят за счёт полного ведра
	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("запрос %d должен пройти (burst)", i+1)
		}
	}

	// Четвёртый сразу же - нет токенов
	if rl.Allow() {
		t.Error("запрос сверх burst должен быть отклонён")
	}
}

func TestWait_ImmediateWithTokens(t *testing.T) {
	rl := NewRateLimiter(10, 10)

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Wait с полным ведром занял %v, должен быть мгновенным", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	rl := NewRateLimiter(0.1, 1) // один токен, пополнение раз в 10 секунд
	rl.Allow()                   // опустошаем ведро

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx)
	if err == nil {
		t.Fatal("ожидалась ошибка отмены контекста")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("err = %v, ожидался DeadlineExceeded", err)
	}
}

func TestWaitN(t *testing.T) {
	rl := NewRateLimiter(100, 10)

	if err := rl.WaitN(context.Background(), 5); err != nil {
		t.Fatalf("WaitN(5): %v", err)
	}
	if err := rl.WaitN(context.Background(), 0); err != nil {
		t.Fatalf("WaitN(0) должен быть no-op: %v", err)
	}
}

func TestTokens_Refill(t *testing.T) {
	rl := NewRateLimiter(100, 10)

	// Опустошаем ведро
	for rl.Allow() {
	}

	// Через 50ms при rate=100 должно накопиться ~5 токенов
	time.Sleep(50 * time.Millisecond)
	tokens := rl.Tokens()
	if tokens < 2 || tokens > 10 {
		t.Errorf("Tokens = %v, ожидалось пополнение", tokens)
	}
}

func TestSetRate(t *testing.T) {
	rl := NewRateLimiter(10, 20)

	rl.SetRate(50)
	if rl.Rate() != 50 {
		t.Errorf("Rate = %v после SetRate(50)", rl.Rate())
	}

	// Некорректный rate игнорируется
	rl.SetRate(-1)
	if rl.Rate() != 50 {
		t.Errorf("Rate = %v, отрицательный rate должен игнорироваться", rl.Rate())
	}
}

// ============================================================
// Тесты MultiLimiter
// ============================================================

func TestMultiLimiter(t *testing.T) {
	ml := NewMultiLimiter()
	ml.Add("order", 1, 2)
	ml.Add("query", 100, 200)

	// Категория order: burst 2
	if !ml.Allow("order") || !ml.Allow("order") {
		t.Fatal("первые два запроса order должны пройти")
	}
	if ml.Allow("order") {
		t.Error("третий запрос order должен быть отклонён")
	}

	// Независимая категория query не затронута
	if !ml.Allow("query") {
		t.Error("запрос query должен пройти")
	}

	// Неизвестная категория - без лимита
	if !ml.Allow("unknown") {
		t.Error("неизвестная категория не должна лимитироваться")
	}
	if err := ml.Wait(context.Background(), "unknown"); err != nil {
		t.Errorf("Wait для неизвестной категории: %v", err)
	}
}

func TestMultiLimiter_Get(t *testing.T) {
	ml := NewMultiLimiter()
	ml.Add("order", 5, 10)

	if ml.Get("order") == nil {
		t.Error("Get должен вернуть добавленный limiter")
	}
	if ml.Get("missing") != nil {
		t.Error("Get для отсутствующей категории должен вернуть nil")
	}
}
