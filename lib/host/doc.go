// Package host contains the collaborators a database registry needs from its
// environment: a scheduler for periodic work and shutdown notification (IScheduler)
// and a line based message sink for debug output (IMessageSink).
//
// Two schedulers are provided:
//   - SystemScheduler: real time, one goroutine with a time.Ticker per periodic task.
//     Shutdown (or WaitForSignal) stops all tasks and then runs the shutdown hooks.
//   - ManualScheduler: nothing happens until Tick or Shutdown is called. Used in tests
//     to drive the idle sweep deterministically.
//
// Example:
//
//	sched := host.NewSystemScheduler()
//	manager := db.NewDatabaseManager(propertyStore, sched, nil)
//	sched.WaitForSignal(context.Background()) // blocks, then flushes every database
package host
