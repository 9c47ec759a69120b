// Package health serves the operations listener: liveness, readiness and
// detailed health probes, the Prometheus endpoint and the compliance audit
// listing.
//
//	h := health.NewHandler(logger)
//	h.AddCheck(health.CacheHealthCheck("kv", store))
//	engine := health.NewOpsEngine(h, metrics.Handler(), sink)
//
// Readiness turns unhealthy once SetDraining is called so load balancers
// stop routing traffic before the public listener shuts down.
package health
