package installer

import "context"

// Assume records name/version as externally provided, satisfying
// dependency and conflict checks against it without any file tracking —
// used for base-system packages Wright did not itself install (glibc,
// the kernel, and the like on a freshly bootstrapped system).
func (in *Installer) Assume(ctx context.Context, name, version string) error {
	return in.st.Assume(ctx, name, version)
}

// Unassume removes a previously recorded assumption.
func (in *Installer) Unassume(ctx context.Context, name string) error {
	return in.st.Unassume(ctx, name)
}
