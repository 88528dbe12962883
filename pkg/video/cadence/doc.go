// Package cadence принимает видеокадры от производителя и передает их по
// одному в последовательный контекст исполнения (taskqueue).
//
// FrameCadenceAdapter:
//
//   - принимает кадры от одного производителя за раз; одновременный вход
//     двух производителей обнаруживается RaceChecker без блокировок;
//   - считает кадры в полете атомарным счетчиком и передает получателю
//     глубину очереди на момент начала обработки кадра;
//   - хранит ограничения частоты источника и, в режиме zero-hertz, один раз
//     за период включения отчитывается о них в metrics.Sink;
//   - после Close все уже поставленные задачи становятся пустыми.
//
// Пример:
//
//	q := taskqueue.New("encoder")
//	adapter := cadence.New(clock.RealClock(), q, cadence.WithMetrics(sink))
//	adapter.Initialize(encoder)
//	q.PostTask(func() { adapter.SetZeroHertzModeEnabled(true) })
//
//	// горутина захвата
//	adapter.OnFrame(frame)
//
//	adapter.Close()
//	q.Close()
package cadence
