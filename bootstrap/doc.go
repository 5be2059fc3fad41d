// Package bootstrap runs the lifecycle of the transcribe binary: start the
// registered components, run the startup hooks, then either serve until a
// signal arrives (Run) or execute one task (RunTask), and stop everything in
// reverse order.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(storageComponent)
//	app.OnStart(func(ctx context.Context) error { ... })
//	err = app.RunTask(ctx, func(ctx context.Context) error { ... })
package bootstrap
