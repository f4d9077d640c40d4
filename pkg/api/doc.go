// Package api defines the public data model of the docflow activity: flow
// definitions, question/answer records, citation annotations, and the
// deterministic content id derivation that joins the two.
package api
