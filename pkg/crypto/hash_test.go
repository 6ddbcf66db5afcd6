package crypto

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// ============================================================
// Тесты HashToken
// ============================================================

func TestHashToken(t *testing.T) {
	hash, err := HashToken("ops-token-123")
	if err != nil {
		t.Fatalf("HashToken: %v", err)
	}
	if hash == "" || hash == "ops-token-123" {
		t.Error("хеш не должен быть пустым или совпадать с токеном")
	}
}

func TestHashToken_Empty(t *testing.T) {
	if _, err := HashToken(""); err != ErrEmptyToken {
		t.Errorf("err = %v, ожидался ErrEmptyToken", err)
	}
}

func TestHashToken_TooLong(t *testing.T) {
	long := strings.Repeat("a", MaxTokenLength+1)
	if _, err := HashToken(long); err != ErrTokenTooLong {
		t.Errorf("err = %v, ожидался ErrTokenTooLong", err)
	}
}

func TestHashToken_UniqueSalt(t *testing.T) {
	// Используем минимальный cost, иначе тест слишком медленный
	h1, err := HashTokenWithCost("same-token", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashTokenWithCost: %v", err)
	}
	h2, err := HashTokenWithCost("same-token", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashTokenWithCost: %v", err)
	}

	if h1 == h2 {
		t.Error("одинаковые токены должны давать разные хеши (salt)")
	}
}

func TestHashTokenWithCost_ClampsCost(t *testing.T) {
	// Cost вне диапазона не должен приводить к ошибке
	if _, err := HashTokenWithCost("token", -5); err != nil {
		t.Errorf("отрицательный cost должен приводиться к MinCost: %v", err)
	}
}

// ============================================================
// Тесты VerifyToken
// ============================================================

func TestVerifyToken(t *testing.T) {
	hash, err := HashTokenWithCost("correct-token", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashTokenWithCost: %v", err)
	}

	if err := VerifyToken("correct-token", hash); err != nil {
		t.Errorf("верный токен отклонён: %v", err)
	}

	if err := VerifyToken("wrong-token", hash); err != ErrTokenMismatch {
		t.Errorf("err = %v, ожидался ErrTokenMismatch", err)
	}
}

func TestVerifyToken_EdgeCases(t *testing.T) {
	if err := VerifyToken("", "some-hash"); err != ErrEmptyToken {
		t.Errorf("err = %v, ожидался ErrEmptyToken", err)
	}
	if err := VerifyToken("token", ""); err != ErrInvalidHash {
		t.Errorf("err = %v, ожидался ErrInvalidHash", err)
	}
	if err := VerifyToken("token", "not-a-bcrypt-hash"); err != ErrInvalidHash {
		t.Errorf("err = %v, ожидался ErrInvalidHash", err)
	}
}

func TestCheckTokenMatch(t *testing.T) {
	hash, err := HashTokenWithCost("token", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashTokenWithCost: %v", err)
	}

	if !CheckTokenMatch("token", hash) {
		t.Error("верный токен должен проходить проверку")
	}
	if CheckTokenMatch("other", hash) {
		t.Error("неверный токен не должен проходить проверку")
	}
}
