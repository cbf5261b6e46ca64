// Package health serves liveness and readiness probes for avarouter.
//
// A Checker reports liveness unconditionally and readiness from the
// checks registered on it. A check returning StatusUnhealthy makes the
// process not ready; StatusDegraded keeps it ready but is reported.
//
//	checker := health.NewChecker(version)
//	checker.RegisterCheck("routes", health.RouteTableCheck(func() int {
//	    return len(rt.Routes())
//	}))
//	checker.RegisterCheck("cache", health.CacheCheck(store, time.Second))
//
//	mux.Handle("/healthz", checker.HealthHandler())
//	mux.Handle("/readyz", checker.ReadinessHandler())
//	mux.Handle("/livez", checker.LivenessHandler())
package health
