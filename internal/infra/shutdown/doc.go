// Package shutdown provides the process error boundary for imrelay.
//
// A Handler waits for SIGINT, SIGTERM or a fatal error reported by a
// component, cancels its context and runs the registered hooks in reverse
// order of registration.
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	go func() {
//		if err := engine.Run(h.Context(), ln); err != nil {
//			h.Fatal(err)
//		}
//	}()
//	h.OnShutdown(func(ctx context.Context) error { return gw.Close() })
//	if err := h.Wait(); err != nil {
//		os.Exit(1)
//	}
package shutdown
