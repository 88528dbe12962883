// Package audio содержит координатор состояния аудио для активной медиа сессии.
//
// State владеет общей конфигурацией аудио транспорта, отслеживает множество
// исходящих аудио потоков и управляет жизненным циклом воспроизведения и записи.
// Когда воспроизведение выключено, State подменяет устройство синтетическим
// NullAudioPoller, который по таймеру вытягивает кадры из транспорта, чтобы
// цепочка обработки продолжала продвигаться.
//
// # Модель потоков
//
// Все изменяющие методы State привязаны к одному "домашнему" контексту
// исполнения. Он фиксируется первым вызовом изменяющего метода или
// заново после DetachFromSequence. Из любых горутин можно вызывать только
// AddRef и Release. Нарушение привязки, повторное удаление потока и уничтожение
// с непустым множеством потоков являются нарушениями контракта (см. пакет checks).
//
// # Пример
//
//	state := audio.Create(audio.Config{
//	    VoiceEngine: voiceBase,
//	    Mixer:       mixer,
//	})
//	defer state.Release()
//
//	state.AddSendingStream(stream, 48000, 2)
//	state.SetPlayout(false) // запускает NullAudioPoller
//	...
//	state.RemoveSendingStream(stream)
package audio
