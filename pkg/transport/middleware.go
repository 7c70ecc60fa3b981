package transport

// Middleware decorates a ChatHandler. The HTTP adapter only runs the chat
// route through middleware; the read-only routes are served directly.
type Middleware func(ChatHandler) ChatHandler

// Chain folds middlewares into one. The first middleware sees the request
// first: Chain(a, b)(h) behaves like a(b(h)).
func Chain(middlewares ...Middleware) Middleware {
	return func(h ChatHandler) ChatHandler {
		wrapped := h
		for i := range middlewares {
			wrapped = middlewares[len(middlewares)-1-i](wrapped)
		}
		return wrapped
	}
}
