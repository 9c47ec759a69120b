// Package pipeline runs the per-request interceptor chain in front of the
// application:
//
//	compliance filter -> route classifier -> tenant resolver -> auth gate -> upstream
//
// Each stage may end the request. Compliance rejections are answered with a
// 403 JSON body and handed to the audit sink; unclassified routes get a 404
// under the default-deny policy; tenant failures map to 401, 403 or 503;
// the auth gate answers with redirects or JSON errors.
//
// The compliance filter, route table and auth gate of one configuration
// generation form an immutable Snapshot. Reload swaps the snapshot
// atomically, so a request always sees a single generation.
package pipeline
