// Package sync implements the two read/write paths between the live store
// and the portable document: the export serializer and the import
// reconciler.
//
// # Import algorithm
//
// Import runs two passes across ALL collections in the document, never
// collection-at-a-time:
//
//	Document
//	   ↓ pre-step: optional clearing, entity index rebuilt
//	Pass 1: create collections/modes/variables, write raw values;
//	        alias leaves get their carried fallback written as a
//	        placeholder and are queued on a pending worklist
//	   ↓ entity index rebuilt (new variables become visible)
//	Pass 2: each pending alias is looked up by (collection, path);
//	        found targets overwrite the placeholder with a true alias,
//	        missing targets keep the fallback and are counted
//	   ↓ entity index rebuilt once more
//	Styles: create/update by name, bound-variable fields wired the
//	        same way, missing targets skipped silently
//
// The placeholder-then-defer policy is the central invariant: at no point
// after Pass 1 does any variable hold an unset mode value, and the result
// does not depend on the order collections appear in the document.
//
// # Error handling
//
// The reconciler is resilient: a host rejection of one entity is logged,
// counted in Stats.Errors, and skipped. Only a malformed document or a
// setup failure aborts before mutation; mid-mutation failures are the
// snapshot package's concern.
package sync
