// Package testutil starts components for tests and stops them when the
// test ends.
//
//	func TestJournal(t *testing.T) {
//	    rd, mini := testutil.Redis(t)
//	    store := redis.NewTypedStore[transcription.JournalEntry](rd.Client(), "journal")
//	    ...
//	}
package testutil
