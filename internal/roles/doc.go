// Package roles models operator roles as a closed enumeration with an
// explicit capability set per role and decides whether a role may perform
// a requested stage move. Denial is a normal boolean outcome; callers map
// it to their own error taxonomy.
package roles
