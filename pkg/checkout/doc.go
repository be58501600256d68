// Package checkout brokers payment sessions through a shared intent
// document. The client writes what it wants to buy; a server-side extension
// appends either a provider session id or an error to the same document, and
// the broker reacts to whichever arrives first within the allowed window.
//
// One attempt at a time: a second Initiate while the first is unsettled
// fails fast with ErrCheckoutInProgress. Each attempt settles exactly once,
// whether by result, decline, timeout or cancellation; late arrivals after
// settlement are ignored.
package checkout
