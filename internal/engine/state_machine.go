package engine

// Состояния координатора ресинхронизации
const (
	StateUninitialized = "UNINITIALIZED" // стартовое, снимок недостоверен
	StateInitializing  = "INITIALIZING"  // идёт перестройка состояния
	StateReady         = "READY"         // снимок достоверен
)

// ValidTransitions определяет допустимые переходы между состояниями.
// READY -> INITIALIZING делает перестройку повторно входимой: каждый
// разрыв стрима запускает её заново.
var ValidTransitions = map[string][]string{
	StateUninitialized: {StateInitializing},
	StateInitializing:  {StateReady, StateUninitialized}, // Uninitialized при полном провале
	StateReady:         {StateInitializing},
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StateInfo возвращает описание состояния для ops API
func StateInfo(s string) string {
	switch s {
	case StateUninitialized:
		return "Состояние аккаунта не загружено"
	case StateInitializing:
		return "Идёт ресинхронизация с биржей..."
	case StateReady:
		return "Состояние аккаунта достоверно"
	default:
		return "Неизвестное состояние"
	}
}

// StateTransitionError - попытка недопустимого перехода
type StateTransitionError struct {
	From string
	To   string
}

func (e *StateTransitionError) Error() string {
	return "invalid state transition: " + e.From + " -> " + e.To
}

// stateGaugeValue отображает состояние в значение метрики
func stateGaugeValue(s string) float64 {
	switch s {
	case StateInitializing:
		return 1
	case StateReady:
		return 2
	default:
		return 0
	}
}
