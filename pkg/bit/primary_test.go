package bit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fbce-flight/bit-go/pkg/bittest"
	"github.com/fbce-flight/bit-go/pkg/health"
	"github.com/fbce-flight/bit-go/pkg/testid"
)

func TestStartTestInvalid(t *testing.T) {
	for _, id := range []testid.TestID{testid.NoTest, testid.PowerOnOne, testid.PowerOnTwo} {
		t.Run(id.String(), func(t *testing.T) {
			f := newFixture(t, nil)

			before := time.Now()
			require.NoError(t, f.m.StartTest(context.Background(), id))
			after := time.Now()

			e := f.waitEvent(t, EventTestComplete)
			assert.Equal(t, id, e.Test)
			assert.False(t, e.Succeeded)
			assert.ErrorIs(t, e.Err, testid.ErrInvalidTest)

			entries := f.health.Entries()
			require.Len(t, entries, 1)
			assert.Equal(t, health.SeverityError, entries[0].Severity)
			assert.Equal(t, OpStartTest, entries[0].Operation)
			assert.Equal(t, health.CSCBit, entries[0].Subsystem)
			assert.False(t, entries[0].Timestamp.Before(before))
			assert.False(t, entries[0].Timestamp.After(after))

			f.factory.AssertNotCalled(t, "New", mock.Anything, mock.Anything)
			assert.Empty(t, f.drain())
		})
	}
}

func TestStartTestQueuedBeforeStart(t *testing.T) {
	m := New(Config{})
	events := make(chan Event, 1)
	m.OnEvent(func(e Event) { events <- e })

	done := make(chan error, 1)
	go func() { done <- m.StartTest(context.Background(), testid.NoTest) }()

	select {
	case <-events:
		t.Fatal("operation ran before Start")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, m.Start(context.Background()))
	defer m.Close()

	require.NoError(t, <-done)
	e := <-events
	assert.Equal(t, EventTestComplete, e.Type)
	assert.False(t, e.Succeeded)
}

func TestStartTestValid(t *testing.T) {
	tests := []struct {
		given    testid.TestID
		physical testid.TestID
		result   bool
	}{
		{testid.InterfaceBit1, testid.InterfaceBit1, true},
		{testid.InterfaceBit2, testid.InterfaceBit2, false},
		{testid.InterfaceBit3, testid.InterfaceBit3, true},
		{testid.InterfaceBit4, testid.InterfaceBit4, false},
		{testid.InterfaceBit5, testid.InterfaceBit5, true},
		{testid.FunctionalTest1, testid.FunctionalTest1, false},
		{testid.FunctionalTest2, testid.FunctionalTest2, true},
		{testid.FunctionalTest3, testid.FunctionalTest3, false},
		{testid.FunctionalTest4, testid.FunctionalTest4, true},
		{testid.FunctionalTest5, testid.FunctionalTest5, false},
		{testid.FunctionalTest6, testid.FunctionalTest6, true},
		{testid.MaintenanceBit1, testid.FunctionalTest1, true},
		{testid.MaintenanceBit2, testid.MaintenanceBit2, false},
		{testid.MaintenanceBit3, testid.InterfaceBit3, true},
		{testid.MaintenanceBit4, testid.FunctionalTest2, false},
		{testid.MaintenanceBit5, testid.FunctionalTest3, true},
		{testid.MaintenanceBit6, testid.FunctionalTest4, false},
		{testid.MaintenanceBit7, testid.MaintenanceBit7, true},
		{testid.MaintenanceBit8, testid.InterfaceBit5, false},
		{testid.MaintenanceBit9, testid.InterfaceBit4, true},
		{testid.MaintenanceBit10, testid.MaintenanceBit10, false},
	}

	for _, tc := range tests {
		t.Run(tc.given.String(), func(t *testing.T) {
			f := newFixture(t, nil)
			test := newStubTest()
			f.factory.On("New", tc.physical, mock.Anything).Return(test, nil).Once()

			test.On("Start", tc.given).Run(func(mock.Arguments) {
				// Wiring is complete before the test sees Start.
				if !assert.NotNil(t, f.m.active) {
					return
				}
				assert.Same(t, test, f.m.active.test)
				assert.Same(t, test, f.m.router.Peer())
				assert.True(t, test.completed.IsConnected(f.m))
				assert.True(t, f.m.commandReceived.IsConnected(test))
			}).Return().Once()

			require.NoError(t, f.m.StartTest(context.Background(), tc.given))

			started := f.waitEvent(t, EventTestStarted)
			assert.Equal(t, tc.given, started.Test)
			assert.Equal(t, tc.physical, started.Physical)
			assert.NotEmpty(t, started.RunID)

			test.completed.Emit(bittest.Completion{Test: tc.given, Succeeded: tc.result})

			e := f.waitEvent(t, EventTestComplete)
			assert.Equal(t, tc.given, e.Test)
			assert.Equal(t, tc.result, e.Succeeded)
			assert.Equal(t, started.RunID, e.RunID)
			assert.NoError(t, e.Err)

			f.onLoop(t, func() {
				assert.Nil(t, f.m.active)
				assert.Nil(t, f.m.router.Peer())
				assert.False(t, test.completed.IsConnected(f.m))
			})

			assert.Equal(t, 0, f.health.Count(health.SeverityError))
			ops := []string{}
			for _, entry := range f.health.Entries() {
				ops = append(ops, entry.Operation)
			}
			assert.Equal(t, []string{OpStartTest, OpTestComplete}, ops)

			f.factory.AssertExpectations(t)
			test.AssertExpectations(t)
		})
	}
}

func TestStartTestCompletionDuringStart(t *testing.T) {
	f := newFixture(t, nil)
	test := newStubTest()
	f.factory.On("New", testid.InterfaceBit2, mock.Anything).Return(test, nil)
	test.On("Start", testid.InterfaceBit2).Run(func(mock.Arguments) {
		test.completed.Emit(bittest.Completion{Test: testid.InterfaceBit2, Succeeded: true})
	}).Return()

	require.NoError(t, f.m.StartTest(context.Background(), testid.InterfaceBit2))

	f.waitEvent(t, EventTestStarted)
	e := f.waitEvent(t, EventTestComplete)
	assert.True(t, e.Succeeded)

	f.onLoop(t, func() { assert.Nil(t, f.m.active) })
}

func TestStartTestSetsRunID(t *testing.T) {
	f := newFixture(t, nil)
	test := &taggedStubTest{stubTest: newStubTest()}
	f.factory.On("New", testid.FunctionalTest3, mock.Anything).Return(test, nil)
	test.On("Start", testid.FunctionalTest3).Return()

	require.NoError(t, f.m.StartTest(context.Background(), testid.FunctionalTest3))

	started := f.waitEvent(t, EventTestStarted)
	assert.Equal(t, started.RunID, test.runID)

	entries := f.health.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, started.RunID, entries[0].RunID)
}

func TestStartTestAlreadyRunning(t *testing.T) {
	f := newFixture(t, nil)
	first := newStubTest()
	first.On("Start", testid.InterfaceBit1).Return()
	f.factory.On("New", testid.InterfaceBit1, mock.Anything).Return(first, nil).Once()

	require.NoError(t, f.m.StartTest(context.Background(), testid.InterfaceBit1))
	f.waitEvent(t, EventTestStarted)
	f.health.Reset()

	require.NoError(t, f.m.StartTest(context.Background(), testid.FunctionalTest2))

	e := f.waitEvent(t, EventTestComplete)
	assert.Equal(t, testid.FunctionalTest2, e.Test)
	assert.False(t, e.Succeeded)
	assert.ErrorIs(t, e.Err, ErrAlreadyRunning)

	assert.Equal(t, 1, f.health.Len())
	assert.Equal(t, 1, f.health.Count(health.SeverityError))

	f.onLoop(t, func() {
		require.NotNil(t, f.m.active)
		assert.Same(t, first, f.m.active.test)
	})
	f.factory.AssertNumberOfCalls(t, "New", 1)
	first.AssertNotCalled(t, "Stop", mock.Anything)
}

func TestStartTestInvalidWhileRunning(t *testing.T) {
	f := newFixture(t, nil)
	first := newStubTest()
	first.On("Start", testid.InterfaceBit1).Return()
	f.factory.On("New", testid.InterfaceBit1, mock.Anything).Return(first, nil)

	require.NoError(t, f.m.StartTest(context.Background(), testid.InterfaceBit1))
	require.NoError(t, f.m.StartTest(context.Background(), testid.PowerOnTwo))

	e := f.waitEvent(t, EventTestComplete)
	assert.ErrorIs(t, e.Err, testid.ErrInvalidTest)
}

func TestStartTestFactoryError(t *testing.T) {
	f := newFixture(t, nil)
	boom := errors.New("boom")
	f.factory.On("New", testid.FunctionalTest5, mock.Anything).Return(nil, boom)

	require.NoError(t, f.m.StartTest(context.Background(), testid.FunctionalTest5))

	e := f.waitEvent(t, EventTestComplete)
	assert.Equal(t, testid.FunctionalTest5, e.Test)
	assert.False(t, e.Succeeded)
	assert.ErrorIs(t, e.Err, boom)
	assert.Equal(t, 1, f.health.Count(health.SeverityError))

	f.onLoop(t, func() { assert.Nil(t, f.m.active) })
}

func TestStartTestNoFactory(t *testing.T) {
	m := New(Config{})
	events := make(chan Event, 1)
	m.OnEvent(func(e Event) { events <- e })
	require.NoError(t, m.Start(context.Background()))
	defer m.Close()

	require.NoError(t, m.StartTest(context.Background(), testid.InterfaceBit1))

	e := <-events
	assert.Equal(t, EventTestComplete, e.Type)
	assert.ErrorIs(t, e.Err, ErrNoFactory)
}

func TestStopTestActive(t *testing.T) {
	f := newFixture(t, nil)
	test := newStubTest()
	test.On("Start", testid.InterfaceBit1).Return()
	f.factory.On("New", testid.InterfaceBit1, mock.Anything).Return(test, nil)

	require.NoError(t, f.m.StartTest(context.Background(), testid.InterfaceBit1))
	f.health.Reset()

	// The identifier is forwarded as given, even when it names another test.
	require.NoError(t, f.m.StopTest(context.Background(), testid.FunctionalTest2))
	require.NoError(t, f.m.StopTest(context.Background(), testid.InterfaceBit1))

	test.AssertCalled(t, "Stop", testid.FunctionalTest2)
	test.AssertCalled(t, "Stop", testid.InterfaceBit1)

	entries := f.health.Entries()
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, OpStopTest, entry.Operation)
		assert.Equal(t, health.SeverityStatus, entry.Severity)
	}

	// Stopping alone does not release the test; its completion does.
	f.onLoop(t, func() { assert.NotNil(t, f.m.active) })
}

func TestStopTestInactive(t *testing.T) {
	f := newFixture(t, nil)

	for _, id := range []testid.TestID{testid.NoTest, testid.PowerOnTwo, testid.InterfaceBit1, testid.MaintenanceBit10} {
		require.NoError(t, f.m.StopTest(context.Background(), id))
	}
	f.sync(t)

	assert.Equal(t, 0, f.health.Len())
	assert.Empty(t, f.drain())
}

func TestStaleCompletionIgnored(t *testing.T) {
	f := newFixture(t, nil)
	test := newStubTest()
	test.On("Start", testid.InterfaceBit4).Return()
	f.factory.On("New", testid.InterfaceBit4, mock.Anything).Return(test, nil)

	require.NoError(t, f.m.StartTest(context.Background(), testid.InterfaceBit4))
	test.completed.Emit(bittest.Completion{Test: testid.InterfaceBit4, Succeeded: true})
	f.waitEvent(t, EventTestComplete)

	// Disconnected on release, so a second completion goes nowhere.
	test.completed.Emit(bittest.Completion{Test: testid.InterfaceBit4, Succeeded: false})
	f.sync(t)
	assert.Empty(t, f.drain())
}

func TestSequentialRuns(t *testing.T) {
	f := newFixture(t, nil)

	var runIDs []string
	for i := 0; i < 3; i++ {
		test := newStubTest()
		test.On("Start", testid.MaintenanceBit7).Return()
		f.factory.On("New", testid.MaintenanceBit7, mock.Anything).Return(test, nil).Once()

		require.NoError(t, f.m.StartTest(context.Background(), testid.MaintenanceBit7))
		started := f.waitEvent(t, EventTestStarted)
		runIDs = append(runIDs, started.RunID)

		test.completed.Emit(bittest.Completion{Test: testid.MaintenanceBit7, Succeeded: true})
		f.waitEvent(t, EventTestComplete)
	}

	assert.Len(t, runIDs, 3)
	assert.NotEqual(t, runIDs[0], runIDs[1])
	assert.NotEqual(t, runIDs[1], runIDs[2])
}

// taggedStubTest records the run identifier handed to it.
type taggedStubTest struct {
	*stubTest
	runID string
}

func (s *taggedStubTest) SetRunID(id string) { s.runID = id }
