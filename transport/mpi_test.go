package transport

// A *MPIGroup must satisfy Group. Behavioral coverage of MPIGroup itself
// needs a real MPI communicator (mpi.Start/mpi.Stop and world size > 1),
// which the unit test environment does not provide; SerialGroup carries
// the collectives/exchange-protocol coverage instead.
var _ Group = (*MPIGroup)(nil)
