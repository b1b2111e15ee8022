/*
Package session manages the lifecycle of event channel sessions.

It allocates session identifiers, fronts the configured channel backend
(memory or Redis) with a single API, and logs channel activity. Events
flow through it from the dispatcher to whoever drains the session.
*/
package session
