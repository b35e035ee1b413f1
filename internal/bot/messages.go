package bot

// Fixed user-facing templates. These are the only strings the engine ever
// surfaces for auth and failure outcomes; collaborator detail stays in
// the logs.
const (
	msgLoginSuccess = "✅ Login successful."

	msgLoginFailed = "❌ Login failed. Please check your credentials and try again."

	msgAuthRequired = "🔐 Authentication required. Please reply with your username and password:\n" +
		"`username: <your username>`\n`password: <your password>`"

	msgSessionExpired = "⏰ Your session has expired. Please log in again with your username and password."

	msgPermissionDenied = "⚠️ You do not have permission to perform this action."

	msgGenericError = "❌ Sorry, something went wrong while processing your request. Please try again."

	msgLoggedOut = "👋 You have been logged out."
)
