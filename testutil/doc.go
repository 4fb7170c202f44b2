// Package testutil provides test doubles for code built on the dispatcher.
//
// Transport is an in-memory transport.Transport that serves scripted
// replies and records every request it receives:
//
//	fake := testutil.NewTransport("users",
//	    testutil.JSON(200, `{"id":1}`),
//	    testutil.JSON(404, `{"message":"gone"}`),
//	)
//	d, _ := dispatcher.New(fake)
//
// Fakes are lifecycle components, so tests can tie them to testing.T:
//
//	testutil.T(t).Setup(fake)
package testutil
