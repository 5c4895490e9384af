package middleware

import (
	"net/http"

	"github.com/prime3679/family-os-sub001/internal/auth"
	"github.com/prime3679/family-os-sub001/internal/store"
)

const sessionCookieName = "familyos_session"

// RequireAuth validates the session cookie and attaches the caller's
// auth context to the request. The context carries household membership
// and the partner's user id, which stays zero until a partner joins.
func RequireAuth(sessions *store.SessionStore, households *store.HouseholdStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := sessions.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			member, err := households.GetMember(sess.HouseholdID, sess.UserID)
			if err != nil || member == nil {
				unauthorized(w)
				return
			}

			partner, err := households.Partner(sess.HouseholdID, sess.UserID)
			if err != nil {
				unauthorized(w)
				return
			}

			ac := auth.Context{
				UserID:      sess.UserID,
				HouseholdID: sess.HouseholdID,
				Slot:        member.Slot,
				Role:        member.Role,
				SessionID:   sess.ID,
			}
			if partner != nil {
				ac.PartnerID = partner.UserID
			}

			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
