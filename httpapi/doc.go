// Package httpapi exposes a [sessioncore.Engine] over HTTP.
//
// Routes:
//
//	POST /auth/login     {"email","password"} -> token pair
//	POST /auth/refresh   {"refresh_token"}    -> token pair
//	POST /auth/logout    bearer access credential; revokes every session
//	GET  /auth/sessions  bearer access credential; lists live sessions
//	GET  /auth/health    session store ping
//
// Every response is JSON with Cache-Control: no-store. Status mapping for
// engine errors lives here and nowhere else.
package httpapi
