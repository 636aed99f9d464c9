// Package session manages session directories: one series_<date>_<time>
// folder per capture run, holding the typed asset folders (jpg, raw,
// processed, output), the temp staging area, the session logs and the camera
// config snapshot.
//
// Only temp/ is ever removed automatically. Assets move from staging into
// their typed folder by rename so a shot is never copied or half-written.
package session
