/*
Package observability turns engine lifecycle hooks into Prometheus metrics and
structured log lines.

Both helpers return domain.LifecycleHooks, so they compose with Merge:

	hooks := observability.LogHooks(logger).Merge(metrics.Hooks())
*/
package observability
