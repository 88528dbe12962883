// Package checks содержит проверки контрактов для ядра медиа сессии.
//
// Нарушение контракта (вызов не из своей горутины, повторное удаление потока,
// уничтожение состояния с живыми потоками, одновременный вход двух производителей)
// это ошибка программиста, а не восстанавливаемое состояние. Поэтому:
//
//   - в обычной сборке DCheck паникует со значением *ContractViolation;
//   - в сборке с тегом release нарушение пишется в slog на уровне Error
//     и выполнение продолжается без восстановления.
//
// Кроме DCheck пакет предоставляет SequenceChecker ("домашний" контекст
// исполнения) и RaceChecker (неблокирующая проверка последовательного входа).
package checks
