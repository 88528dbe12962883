package checks

import (
	"fmt"
	"log/slog"
)

// ContractViolation значение паники при нарушении контракта.
type ContractViolation struct {
	Message string
}

func (v *ContractViolation) Error() string {
	return "нарушение контракта: " + v.Message
}

// DCheck проверяет условие контракта.
func DCheck(cond bool, format string, args ...interface{}) {
	if cond {
		return
	}
	violate(fmt.Sprintf(format, args...))
}

// DCheckEq проверяет равенство ожидаемого и фактического значения.
func DCheckEq[T comparable](expected, actual T, what string) {
	if expected == actual {
		return
	}
	violate(fmt.Sprintf("%s: ожидалось %v, получено %v", what, expected, actual))
}

// DCheckRange проверяет, что значение лежит в [lo, hi].
func DCheckRange(value, lo, hi int, what string) {
	if value >= lo && value <= hi {
		return
	}
	violate(fmt.Sprintf("%s=%d вне диапазона [%d, %d]", what, value, lo, hi))
}

func violate(msg string) {
	v := &ContractViolation{Message: msg}
	if Enabled {
		panic(v)
	}
	slog.Default().Error("Нарушение контракта",
		slog.String("component", "checks"),
		slog.String("violation", msg))
}
