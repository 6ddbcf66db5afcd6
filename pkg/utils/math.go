package utils

import (
	"math"
)

// math.go - математические утилиты торгового ядра
//
// Назначение:
// Вспомогательные математические функции для учёта позиций и ордеров.
// Все функции являются чистыми (pure functions) без побочных эффектов.

// QuantityEpsilon - порог, ниже которого количество считается нулевым.
// Накопленные ошибки округления float64 при частичных исполнениях
// не должны оставлять "хвосты" позиций.
const QuantityEpsilon = 1e-9

// IsZeroQty возвращает true если количество пренебрежимо мало
// и позиция должна считаться закрытой.
//
// Примеры:
//   - IsZeroQty(0.0) = true
//   - IsZeroQty(1e-12) = true
//   - IsZeroQty(0.001) = false
func IsZeroQty(qty float64) bool {
	return math.Abs(qty) < QuantityEpsilon
}

// RoundToLotSize округляет значение ВНИЗ до ближайшего кратного lotSize.
//
// Используется для округления объёма ордера до минимального шага биржи.
// Округление вниз гарантирует, что мы не превысим доступные средства.
//
// Параметры:
//   - value: исходное значение (объём в монетах актива)
//   - lotSize: минимальный шаг изменения объёма на бирже
//
// Возвращает:
//   - Округлённое значение, кратное lotSize
//   - Если lotSize <= 0, возвращает исходное значение
//
// Примеры:
//   - RoundToLotSize(0.123456, 0.001) = 0.123
//   - RoundToLotSize(1.999, 0.01) = 1.99
//   - RoundToLotSize(100.5, 1.0) = 100.0
func RoundToLotSize(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	// Округление вниз безопаснее для торговли - не превысим доступные средства
	return math.Floor(value/lotSize) * lotSize
}

// RoundToLotSizeUp округляет значение ВВЕРХ до ближайшего кратного lotSize.
//
// Используется когда нужно гарантировать минимальный объём (например, для minQty).
func RoundToLotSizeUp(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	return math.Ceil(value/lotSize) * lotSize
}

// CalculateWeightedAverage вычисляет средневзвешенное значение.
//
// Используется для расчёта средневзвешенной цены входа в позицию
// при доливке в том же направлении.
//
// Формула:
//
//	WAvg = Σ(value_i × weight_i) / Σ(weight_i)
//
// Параметры:
//   - values: слайс цен
//   - weights: слайс количеств (весов)
//
// Возвращает:
//   - Средневзвешенное значение
//   - 0 если входные данные некорректны
//
// Примеры:
//
//	values  = [50000.0, 51000.0]
//	weights = [0.1, 0.1]
//	WAvg = (50000*0.1 + 51000*0.1) / 0.2 = 50500.0
func CalculateWeightedAverage(values, weights []float64) float64 {
	if len(values) == 0 || len(weights) == 0 {
		return 0
	}
	if len(values) != len(weights) {
		return 0
	}

	var sumWeighted, sumWeights float64
	for i := range values {
		if weights[i] < 0 {
			continue // Пропускаем отрицательные веса
		}
		sumWeighted += values[i] * weights[i]
		sumWeights += weights[i]
	}

	if sumWeights == 0 {
		return 0
	}
	return sumWeighted / sumWeights
}

// WeightedEntryPrice вычисляет новую средневзвешенную цену входа
// при увеличении позиции.
//
// Параметры:
//   - currentQty: текущее количество позиции (абсолютное)
//   - currentEntry: текущая цена входа
//   - addQty: добавляемое количество (абсолютное)
//   - addPrice: цена добавления
//
// Возвращает:
//   - Новую средневзвешенную цену входа
func WeightedEntryPrice(currentQty, currentEntry, addQty, addPrice float64) float64 {
	return CalculateWeightedAverage(
		[]float64{currentEntry, addPrice},
		[]float64{math.Abs(currentQty), math.Abs(addQty)},
	)
}

// CalculatePNL расчитывает нереализованную прибыль/убыток по позиции.
//
// Формулы:
//   - Лонг (qty > 0):  PNL = (P_тек - P_вход) × qty
//   - Шорт (qty < 0):  PNL = (P_вход - P_тек) × |qty|
//
// Параметры:
//   - quantity: количество позиции со знаком
//   - entryPrice: средневзвешенная цена входа
//   - currentPrice: текущая цена
//
// Возвращает:
//   - PNL в валюте котировки (обычно USDT)
func CalculatePNL(quantity, entryPrice, currentPrice float64) float64 {
	if IsZeroQty(quantity) {
		return 0
	}
	return (currentPrice - entryPrice) * quantity
}

// Abs возвращает абсолютное значение числа.
func Abs(x float64) float64 {
	return math.Abs(x)
}

// Min возвращает минимум из двух чисел.
func Min(a, b float64) float64 {
	return math.Min(a, b)
}

// Max возвращает максимум из двух чисел.
func Max(a, b float64) float64 {
	return math.Max(a, b)
}

// Clamp ограничивает значение диапазоном [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
