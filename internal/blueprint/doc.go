// Package blueprint turns a decoded blueprints payload into display records.
//
// Normalize(body) runs the whole pipeline: decode the {"data": ...} envelope,
// extract every resource's attributes, map them onto types.Blueprint and
// attach a stage badge summary to each record.
//
// Badge buckets are checked in a fixed order, first match wins:
//
//	green  : running
//	orange : new, created
//	grey   : deleted, paused, stopped
//
// Stages in any other state are not counted.
package blueprint
