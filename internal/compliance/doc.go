// Package compliance implements the prohibited-operation filter that runs
// before any other request stage.
//
// The platform is software only: it never moves money. Requests whose path
// names a fund operation are rejected with 403 regardless of tenant or
// credentials. A Filter applies, in order:
//
//   - the route-prefix and operation-keyword deny lists, as substring tests
//     on the decoded, NFKC normalised and case folded path;
//   - the read-only keywords, which reject unsafe methods;
//   - the capability tag of the matching route rule, when one is set;
//   - optional CEL expression rules over the request.
//
// A Filter is immutable once built and safe for concurrent use.
package compliance
