package cadence

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzzra/media_core/pkg/checks"
	"github.com/arzzra/media_core/pkg/clock"
	"github.com/arzzra/media_core/pkg/metrics"
	"github.com/arzzra/media_core/pkg/taskqueue"
)

type receivedFrame struct {
	postTime  time.Time
	scheduled int
	frame     Frame
}

type recordingCallback struct {
	mu        sync.Mutex
	frames    []receivedFrame
	discarded int
}

func (c *recordingCallback) OnFrame(postTime time.Time, scheduled int, frame Frame) {
	c.mu.Lock()
	c.frames = append(c.frames, receivedFrame{postTime: postTime, scheduled: scheduled, frame: frame})
	c.mu.Unlock()
}

func (c *recordingCallback) OnDiscardedFrame() {
	c.mu.Lock()
	c.discarded++
	c.mu.Unlock()
}

func (c *recordingCallback) received() []receivedFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]receivedFrame(nil), c.frames...)
}

func (c *recordingCallback) discardedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discarded
}

type fixture struct {
	clock    *clock.SimulatedClock
	queue    *taskqueue.Queue
	recorder *metrics.Recorder
	callback *recordingCallback
	adapter  *FrameCadenceAdapter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clock:    clock.NewSimulatedClock(time.Unix(1_700_000_000, 0)),
		queue:    taskqueue.New(t.Name()),
		recorder: metrics.NewRecorder(),
		callback: &recordingCallback{},
	}
	f.adapter = New(f.clock, f.queue, WithMetrics(f.recorder))
	f.adapter.Initialize(f.callback)

	t.Cleanup(func() {
		f.adapter.Close()
		f.queue.Close()
	})
	return f
}

func (f *fixture) setZeroHertz(t *testing.T, enabled bool) {
	t.Helper()
	require.NoError(t, f.queue.RunSync(func() {
		f.adapter.SetZeroHertzModeEnabled(enabled)
	}))
}

// block занимает очередь, пока не будет вызвана возвращенная функция.
func (f *fixture) block() func() {
	started := make(chan struct{})
	release := make(chan struct{})
	f.queue.PostTask(func() {
		close(started)
		<-release
	})
	<-started
	return func() { close(release) }
}

func panicsOn(fn func()) bool {
	done := make(chan bool)
	go func() {
		defer func() { done <- recover() != nil }()
		fn()
	}()
	return <-done
}

func TestAdapter_ForwardsFramesInOrder(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 5; i++ {
		f.adapter.OnFrame(Frame{ID: uint16(i), Width: 1280, Height: 720})
	}
	require.NoError(t, f.queue.Flush())

	got := f.callback.received()
	require.Len(t, got, 5)
	for i, r := range got {
		assert.Equal(t, uint16(i), r.frame.ID)
		assert.Equal(t, 1280, r.frame.Width)
	}
	assert.Equal(t, 0, f.adapter.FramesScheduledForProcessing())
}

func TestAdapter_PostTimeTakenAtProducer(t *testing.T) {
	f := newFixture(t)
	start := f.clock.CurrentTime()

	unblock := f.block()
	f.adapter.OnFrame(Frame{ID: 1})
	f.clock.AdvanceTime(30 * time.Millisecond)
	f.adapter.OnFrame(Frame{ID: 2})
	f.clock.AdvanceTime(time.Second)
	unblock()
	require.NoError(t, f.queue.Flush())

	got := f.callback.received()
	require.Len(t, got, 2)
	assert.Equal(t, start, got[0].postTime)
	assert.Equal(t, start.Add(30*time.Millisecond), got[1].postTime)
}

func TestAdapter_FramesScheduledCountsQueueDepth(t *testing.T) {
	f := newFixture(t)

	unblock := f.block()
	for i := 0; i < 3; i++ {
		f.adapter.OnFrame(Frame{ID: uint16(i)})
	}
	assert.Equal(t, 3, f.adapter.FramesScheduledForProcessing())
	unblock()
	require.NoError(t, f.queue.Flush())

	got := f.callback.received()
	require.Len(t, got, 3)
	assert.Equal(t, 3, got[0].scheduled)
	assert.Equal(t, 2, got[1].scheduled)
	assert.Equal(t, 1, got[2].scheduled)
	assert.Equal(t, 0, f.adapter.FramesScheduledForProcessing())
}

func TestAdapter_FramesScheduledUnderLoad(t *testing.T) {
	f := newFixture(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			f.adapter.OnFrame(Frame{ID: uint16(i)})
		}
	}()
	<-done
	require.NoError(t, f.queue.Flush())

	got := f.callback.received()
	require.Len(t, got, 500)
	for _, r := range got {
		assert.GreaterOrEqual(t, r.scheduled, 1)
	}
	assert.Equal(t, 0, f.adapter.FramesScheduledForProcessing())
}

func TestAdapter_DiscardedFrameIsInline(t *testing.T) {
	f := newFixture(t)

	unblock := f.block()
	defer unblock()

	f.adapter.OnDiscardedFrame()
	f.adapter.OnDiscardedFrame()
	assert.Equal(t, 2, f.callback.discardedCount())
}

func TestAdapter_CloseMakesTasksInert(t *testing.T) {
	f := newFixture(t)
	f.setZeroHertz(t, true)

	unblock := f.block()
	f.adapter.OnConstraintsChanged(Constraints{MinFPS: Int(5), MaxFPS: Int(15)})
	f.adapter.OnFrame(Frame{ID: 1})
	f.adapter.Close()
	f.adapter.OnFrame(Frame{ID: 2})
	unblock()
	require.NoError(t, f.queue.Flush())

	assert.Empty(t, f.callback.received())
	assert.Zero(t, f.recorder.Len())

	assert.NotPanics(t, f.adapter.Close)
}

func TestAdapter_ZeroHertzDisabledNeverReports(t *testing.T) {
	f := newFixture(t)

	f.adapter.OnConstraintsChanged(Constraints{MinFPS: Int(10), MaxFPS: Int(30)})
	for i := 0; i < 10; i++ {
		f.adapter.OnFrame(Frame{ID: uint16(i)})
	}
	require.NoError(t, f.queue.Flush())

	assert.Len(t, f.callback.received(), 10)
	assert.Zero(t, f.recorder.Len())
}

func TestAdapter_ZeroHertzReportsConstraints(t *testing.T) {
	tests := []struct {
		name        string
		constraints *Constraints
		want        map[string][]int
	}{
		{
			name:        "ограничения не заданы",
			constraints: nil,
			want: map[string][]int{
				metricConstraintsExists: {0},
			},
		},
		{
			name:        "пустые ограничения",
			constraints: &Constraints{},
			want: map[string][]int{
				metricConstraintsExists: {1},
				metricMinExists:         {0},
				metricMaxExists:         {0},
			},
		},
		{
			name:        "только max",
			constraints: &Constraints{MaxFPS: Int(25)},
			want: map[string][]int{
				metricConstraintsExists: {1},
				metricMinExists:         {0},
				metricMaxExists:         {1},
				metricMaxValue:          {25},
				metricMinUnsetMax:       {25},
			},
		},
		{
			name:        "только min",
			constraints: &Constraints{MinFPS: Int(7)},
			want: map[string][]int{
				metricConstraintsExists: {1},
				metricMinExists:         {1},
				metricMinValue:          {7},
				metricMaxExists:         {0},
			},
		},
		{
			name:        "min меньше max",
			constraints: &Constraints{MinFPS: Int(10), MaxFPS: Int(30)},
			want: map[string][]int{
				metricConstraintsExists:  {1},
				metricMinExists:          {1},
				metricMinValue:           {10},
				metricMaxExists:          {1},
				metricMaxValue:           {30},
				metricMinLessThanMaxMin:  {10},
				metricMinLessThanMaxMax:  {30},
				metricMinPlusMaxMinusOne: {629},
			},
		},
		{
			name:        "min больше max",
			constraints: &Constraints{MinFPS: Int(30), MaxFPS: Int(10)},
			want: map[string][]int{
				metricConstraintsExists: {1},
				metricMinExists:         {1},
				metricMinValue:          {30},
				metricMaxExists:         {1},
				metricMaxValue:          {10},
			},
		},
		{
			name:        "min равен max",
			constraints: &Constraints{MinFPS: Int(15), MaxFPS: Int(15)},
			want: map[string][]int{
				metricConstraintsExists: {1},
				metricMinExists:         {1},
				metricMinValue:          {15},
				metricMaxExists:         {1},
				metricMaxValue:          {15},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.setZeroHertz(t, true)
			if tt.constraints != nil {
				f.adapter.OnConstraintsChanged(*tt.constraints)
			}
			f.adapter.OnFrame(Frame{ID: 1})
			f.adapter.OnFrame(Frame{ID: 2})
			require.NoError(t, f.queue.Flush())

			got := make(map[string][]int)
			for _, s := range f.recorder.All() {
				got[s.Name] = append(got[s.Name], s.Value)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdapter_ZeroHertzStatsOrder(t *testing.T) {
	f := newFixture(t)
	f.setZeroHertz(t, true)
	f.adapter.OnConstraintsChanged(Constraints{MinFPS: Int(10), MaxFPS: Int(30)})
	f.adapter.OnFrame(Frame{ID: 1})
	require.NoError(t, f.queue.Flush())

	assert.Equal(t, []string{
		metricConstraintsExists,
		metricMinExists,
		metricMinValue,
		metricMaxExists,
		metricMaxValue,
		metricMinLessThanMaxMin,
		metricMinLessThanMaxMax,
		metricMinPlusMaxMinusOne,
	}, f.recorder.Names())

	values := make([]int, 0, f.recorder.Len())
	for _, s := range f.recorder.All() {
		values = append(values, s.Value)
	}
	assert.Equal(t, []int{1, 1, 10, 1, 30, 10, 30, 629}, values)
}

func TestAdapter_ReportOncePerEnabledPeriod(t *testing.T) {
	f := newFixture(t)
	f.adapter.OnConstraintsChanged(Constraints{MinFPS: Int(1), MaxFPS: Int(5)})

	// Кадр до включения режима тоже расходует отчет.
	f.adapter.OnFrame(Frame{ID: 0})
	require.NoError(t, f.queue.Flush())
	assert.Zero(t, f.recorder.Len())

	f.setZeroHertz(t, true)
	f.adapter.OnFrame(Frame{ID: 1})
	f.adapter.OnFrame(Frame{ID: 2})
	require.NoError(t, f.queue.Flush())
	assert.Equal(t, 1, f.recorder.NumSamples(metricConstraintsExists))

	// Повторное включение без выключения не сбрасывает отчет.
	f.setZeroHertz(t, true)
	f.adapter.OnFrame(Frame{ID: 3})
	require.NoError(t, f.queue.Flush())
	assert.Equal(t, 1, f.recorder.NumSamples(metricConstraintsExists))

	f.setZeroHertz(t, false)
	f.setZeroHertz(t, true)
	f.adapter.OnFrame(Frame{ID: 4})
	require.NoError(t, f.queue.Flush())
	assert.Equal(t, 2, f.recorder.NumSamples(metricConstraintsExists))
	assert.Equal(t, 2, f.recorder.NumEvents(metricMinPlusMaxMinusOne, 1*60+5-1))
}

func TestAdapter_ConstraintsAreCopied(t *testing.T) {
	f := newFixture(t)
	f.setZeroHertz(t, true)

	c := Constraints{MinFPS: Int(2), MaxFPS: Int(20)}
	unblock := f.block()
	f.adapter.OnConstraintsChanged(c)
	*c.MinFPS = 50
	f.adapter.OnFrame(Frame{ID: 1})
	unblock()
	require.NoError(t, f.queue.Flush())

	assert.Equal(t, []int{2}, f.recorder.Samples(metricMinValue))
}

func TestAdapter_LatestConstraintsWin(t *testing.T) {
	f := newFixture(t)
	f.setZeroHertz(t, true)

	f.adapter.OnConstraintsChanged(Constraints{MaxFPS: Int(60)})
	f.adapter.OnConstraintsChanged(Constraints{MinFPS: Int(3), MaxFPS: Int(4)})
	f.adapter.OnFrame(Frame{ID: 1})
	require.NoError(t, f.queue.Flush())

	assert.Equal(t, []int{4}, f.recorder.Samples(metricMaxValue))
	assert.Zero(t, f.recorder.NumSamples(metricMinUnsetMax))
}

func TestAdapter_SetZeroHertzOffQueue(t *testing.T) {
	if !checks.Enabled {
		t.Skip("проверки контракта выключены")
	}
	f := newFixture(t)

	assert.True(t, panicsOn(func() { f.adapter.SetZeroHertzModeEnabled(true) }))
}

func TestAdapter_ConcurrentProducersDetected(t *testing.T) {
	if !checks.Enabled {
		t.Skip("проверки контракта выключены")
	}
	f := newFixture(t)

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		release, ok := f.adapter.incomingChecker.Acquire()
		assert.True(t, ok)
		close(held)
		<-done
		release()
	}()
	<-held

	assert.True(t, panicsOn(func() { f.adapter.OnFrame(Frame{ID: 1}) }))
	close(done)

	// После выхода первого производителя вход снова свободен.
	assert.Eventually(t, func() bool {
		return !panicsOn(func() { f.adapter.OnFrame(Frame{ID: 2}) })
	}, time.Second, time.Millisecond)
}

func TestConstraints_Helpers(t *testing.T) {
	var c Constraints
	assert.False(t, c.HasMin())
	assert.False(t, c.HasMax())
	assert.Equal(t, 0, c.MinFPSValue())
	assert.Equal(t, -1, c.MaxFPSOr(-1))

	c = Constraints{MinFPS: Int(5), MaxFPS: Int(30)}
	assert.True(t, c.HasMin())
	assert.Equal(t, 5, c.MinFPSValue())
	assert.Equal(t, 30, c.MaxFPSOr(0))
	assert.Equal(t, "min_fps=5 max_fps=30", c.String())
}

func TestNew_Defaults(t *testing.T) {
	q := taskqueue.New("defaults")
	defer q.Close()

	a := New(nil, q, WithZeroHertzScreenshare(true))
	defer a.Close()

	assert.True(t, a.ZeroHertzScreenshareEnabled())
	assert.NotNil(t, a.clock)
	assert.IsType(t, metrics.Nop{}, a.metrics)

	// Без получателя кадры просто проходят через очередь.
	a.OnFrame(Frame{ID: 1})
	a.OnDiscardedFrame()
	require.NoError(t, q.Flush())
	assert.Equal(t, 0, a.FramesScheduledForProcessing())
}
