package engine

import "testing"

// TestCanTransition_ValidTransitions проверяет все валидные переходы
func TestCanTransition_ValidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
	}{
		{"UNINITIALIZED → INITIALIZING (первая загрузка)", StateUninitialized, StateInitializing},
		{"INITIALIZING → READY (перестройка завершена)", StateInitializing, StateReady},
		{"INITIALIZING → UNINITIALIZED (полный провал)", StateInitializing, StateUninitialized},
		{"READY → INITIALIZING (переподключение стрима)", StateReady, StateInitializing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !CanTransition(tt.from, tt.to) {
				t.Errorf("CanTransition(%s, %s) = false, want true", tt.from, tt.to)
			}
		})
	}
}

// TestCanTransition_InvalidTransitions проверяет, что невалидные переходы отклоняются
func TestCanTransition_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
	}{
		{"UNINITIALIZED → READY (минуя перестройку)", StateUninitialized, StateReady},
		{"READY → UNINITIALIZED (без перестройки)", StateReady, StateUninitialized},
		{"UNINITIALIZED → UNINITIALIZED (self-loop)", StateUninitialized, StateUninitialized},
		{"READY → READY (self-loop)", StateReady, StateReady},
		{"INITIALIZING → INITIALIZING (self-loop)", StateInitializing, StateInitializing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if CanTransition(tt.from, tt.to) {
				t.Errorf("CanTransition(%s, %s) = true, want false", tt.from, tt.to)
			}
		})
	}
}

// TestCanTransition_UnknownState проверяет поведение при неизвестном состоянии
func TestCanTransition_UnknownState(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
	}{
		{"unknown → READY", "UNKNOWN", StateReady},
		{"READY → unknown", StateReady, "UNKNOWN"},
		{"empty → READY", "", StateReady},
		{"lowercase ready → INITIALIZING", "ready", StateInitializing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if CanTransition(tt.from, tt.to) {
				t.Errorf("CanTransition(%s, %s) = true, want false", tt.from, tt.to)
			}
		})
	}
}

// Цикл переподключения: READY → INITIALIZING → READY повторно входим
func TestStateFlow_ReconnectCycle(t *testing.T) {
	cycle := []string{
		StateUninitialized,
		StateInitializing,
		StateReady,
		StateInitializing, // разрыв стрима
		StateReady,
		StateInitializing, // ещё один разрыв
		StateReady,
	}

	for i := 0; i < len(cycle)-1; i++ {
		if !CanTransition(cycle[i], cycle[i+1]) {
			t.Errorf("цикл переподключения разорван: %s → %s", cycle[i], cycle[i+1])
		}
	}
}

// TestValidTransitions_Completeness проверяет полноту таблицы переходов
func TestValidTransitions_Completeness(t *testing.T) {
	allStates := []string{StateUninitialized, StateInitializing, StateReady}

	for _, state := range allStates {
		if _, ok := ValidTransitions[state]; !ok {
			t.Errorf("состояние %s отсутствует в ValidTransitions", state)
		}
	}

	valid := map[string]bool{StateUninitialized: true, StateInitializing: true, StateReady: true}
	for from, tos := range ValidTransitions {
		if !valid[from] {
			t.Errorf("неизвестное состояние %s в ValidTransitions", from)
		}
		for _, to := range tos {
			if !valid[to] {
				t.Errorf("неизвестное целевое состояние %s в переходе из %s", to, from)
			}
			if from == to {
				t.Errorf("self-loop: %s → %s", from, to)
			}
		}
	}
}

func TestStateInfo_AllStates(t *testing.T) {
	for _, s := range []string{StateUninitialized, StateInitializing, StateReady} {
		if StateInfo(s) == "Неизвестное состояние" {
			t.Errorf("StateInfo(%s) не определено", s)
		}
	}
	if StateInfo("bogus") != "Неизвестное состояние" {
		t.Error("неизвестное состояние должно иметь заглушку")
	}
}

func BenchmarkCanTransition(b *testing.B) {
	for i := 0; i < b.N; i++ {
		CanTransition(StateReady, StateInitializing)
	}
}
